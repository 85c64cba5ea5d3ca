package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidHandle(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"vitalik_eth", true},
		{"a", true},
		{"abcdefghijklmno", true},
		{"abcdefghijklmnop", false},
		{"", false},
		{"has space", false},
		{"dash-name", false},
		{"@prefixed", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidHandle(tt.in), "handle %q", tt.in)
	}
}

func TestNewAccountStripsAt(t *testing.T) {
	tg, err := NewAccount("@lookonchain", PriorityHigh, ModeBoth)
	require.NoError(t, err)
	assert.Equal(t, "lookonchain", tg.Query)
	assert.Equal(t, TypeAccount, tg.Type())
	assert.Equal(t, "@lookonchain", tg.Label())
	mode, ok := tg.AccountMode()
	assert.True(t, ok)
	assert.Equal(t, ModeBoth, mode)
}

func TestNewAccountRejectsBadHandle(t *testing.T) {
	_, err := NewAccount("not a handle", PriorityLow, ModeTweets)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestNewKeywordDefaultsTimeRange(t *testing.T) {
	tg, err := NewKeyword("  $SOL \t airdrop ", PriorityMedium, KeywordFilters{MinLikes: 30})
	require.NoError(t, err)
	f, ok := tg.KeywordFilters()
	require.True(t, ok)
	assert.Equal(t, Range24h, f.TimeRange)
	assert.Equal(t, "$SOL airdrop", tg.Query)
	assert.True(t, tg.Enabled)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		t    Target
	}{
		{"no spec", Target{Query: "btc", Priority: PriorityHigh}},
		{"bad priority", Target{Query: "btc", Priority: "URGENT", Spec: KeywordSpec{Filters: KeywordFilters{TimeRange: Range24h}}}},
		{"empty keyword", Target{Query: " ", Priority: PriorityHigh, Spec: KeywordSpec{Filters: KeywordFilters{TimeRange: Range24h}}}},
		{"negative likes", Target{Query: "btc", Priority: PriorityHigh, Spec: KeywordSpec{Filters: KeywordFilters{MinLikes: -1, TimeRange: Range24h}}}},
		{"bad range", Target{Query: "btc", Priority: PriorityHigh, Spec: KeywordSpec{Filters: KeywordFilters{TimeRange: "1y"}}}},
		{"bad mode", Target{Query: "cz_binance", Priority: PriorityHigh, Spec: AccountSpec{Mode: "ALL"}}},
		{"pointer spec", Target{Query: "btc", Priority: PriorityHigh, Spec: &KeywordSpec{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, Validate(tt.t), ErrInvalidTarget)
		})
	}
}

func TestAssembleRejectsMismatchedPayload(t *testing.T) {
	f := &KeywordFilters{TimeRange: Range48h}
	_, err := Assemble("1", TypeAccount, "cz_binance", PriorityHigh, true, f, ModeTweets)
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = Assemble("2", TypeKeyword, "eth", PriorityHigh, true, nil, "")
	assert.ErrorIs(t, err, ErrInvalidTarget)

	_, err = Assemble("3", "LIST", "eth", PriorityHigh, true, nil, "")
	assert.ErrorIs(t, err, ErrUnknownType)

	tg, err := Assemble("4", TypeKeyword, "eth", PriorityLow, false, f, "")
	require.NoError(t, err)
	assert.Equal(t, "4", tg.ID)
	assert.False(t, tg.Enabled)
}

func TestApplyEdit(t *testing.T) {
	kw, err := NewKeyword("memecoin", PriorityLow, KeywordFilters{})
	require.NoError(t, err)
	kw.ID = "k1"

	high := PriorityHigh
	off := false
	out, err := ApplyEdit(kw, Edit{Priority: &high, Enabled: &off, Filters: &KeywordFilters{MinLikes: 60, TimeRange: Range7d}})
	require.NoError(t, err)
	assert.Equal(t, "k1", out.ID)
	assert.Equal(t, TypeKeyword, out.Type())
	assert.Equal(t, PriorityHigh, out.Priority)
	assert.False(t, out.Enabled)
	f, _ := out.KeywordFilters()
	assert.Equal(t, 60, f.MinLikes)

	same := "memecoin"
	_, err = ApplyEdit(kw, Edit{Query: &same})
	assert.NoError(t, err)

	spaced := "  memecoin \t"
	_, err = ApplyEdit(kw, Edit{Query: &spaced})
	assert.NoError(t, err)

	acc, err := NewAccount("@cobie", PriorityLow, ModeTweets)
	require.NoError(t, err)
	at := " @cobie"
	_, err = ApplyEdit(acc, Edit{Query: &at})
	assert.NoError(t, err)

	other := "shitcoin"
	_, err = ApplyEdit(kw, Edit{Query: &other})
	assert.ErrorIs(t, err, ErrImmutableField)

	mode := ModeBoth
	_, err = ApplyEdit(kw, Edit{Mode: &mode})
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestTargetJSONRoundTrip(t *testing.T) {
	acc, err := NewAccount("whale_alert", PriorityMedium, ModeReplies)
	require.NoError(t, err)
	acc.ID = "a1"
	b, err := json.Marshal(acc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a1","type":"ACCOUNT","query":"whale_alert","priority":"MEDIUM","enabled":true,"mode":"REPLIES"}`, string(b))

	var back Target
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, acc, back)
}

func TestTargetJSONRejectsWrongField(t *testing.T) {
	var tg Target
	err := json.Unmarshal([]byte(`{"id":"x","type":"KEYWORD","query":"btc","priority":"HIGH","enabled":true,"mode":"TWEETS"}`), &tg)
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestDraftTarget(t *testing.T) {
	d := Draft{Type: TypeAccount, Query: "@cobie", Priority: PriorityHigh}
	tg, err := d.Target()
	require.NoError(t, err)
	mode, _ := tg.AccountMode()
	assert.Equal(t, ModeTweets, mode)

	d = Draft{Type: TypeAccount, Query: "cobie", Priority: PriorityHigh, Filters: &KeywordFilters{}}
	_, err = d.Target()
	assert.ErrorIs(t, err, ErrInvalidTarget)

	d = Draft{Type: TypeKeyword, Query: "btc", Priority: PriorityHigh}
	_, err = d.Target()
	assert.ErrorIs(t, err, ErrInvalidTarget)

	d = Draft{Type: TypeKeyword, Query: "btc", Priority: PriorityHigh, Filters: &KeywordFilters{MinLikes: 10}}
	tg, err = d.Target()
	require.NoError(t, err)
	f, _ := tg.KeywordFilters()
	assert.Equal(t, Range24h, f.TimeRange)

	d = Draft{Type: "", Query: "btc", Priority: PriorityHigh}
	_, err = d.Target()
	assert.ErrorIs(t, err, ErrInvalidTarget)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	p, err := ParsePriority(" high ")
	require.NoError(t, err)
	assert.Equal(t, PriorityHigh, p)
	_, err = ParseMode("everything")
	assert.ErrorIs(t, err, ErrUnknownMode)
}
