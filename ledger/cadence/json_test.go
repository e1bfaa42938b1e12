package cadence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	t.Parallel()

	addr, err := ParseAddress("0xba1132bc08f82fe2")
	require.NoError(t, err)

	tests := []struct {
		name string
		give Value
		want string
	}{
		{name: "string", give: String("Edoye"), want: `{"type":"String","value":"Edoye"}`},
		{name: "address", give: addr, want: `{"type":"Address","value":"0xba1132bc08f82fe2"}`},
		{name: "uint8", give: UInt8(3), want: `{"type":"UInt8","value":"3"}`},
		{name: "ufix64", give: UFix64(100050000000), want: `{"type":"UFix64","value":"1000.50000000"}`},
		{name: "nil optional", give: Optional{}, want: `{"type":"Optional","value":null}`},
		{name: "void", give: Void{}, want: `{"type":"Void"}`},
		{
			name: "optional string",
			give: NewOptional(String("x")),
			want: `{"type":"Optional","value":{"type":"String","value":"x"}}`,
		},
		{
			name: "array",
			give: Array{Bool(true), NewInt(-7)},
			want: `{"type":"Array","value":[{"type":"Bool","value":true},{"type":"Int","value":"-7"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Encode(tt.give)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestDecode_ProfileReadOnly(t *testing.T) {
	t.Parallel()

	raw := `{
		"type": "Optional",
		"value": {
			"type": "Struct",
			"value": {
				"id": "A.ba1132bc08f82fe2.Profile.ReadOnly",
				"fields": [
					{"name": "address", "value": {"type": "Address", "value": "0x00000000000000ab"}},
					{"name": "name", "value": {"type": "String", "value": "Edoye"}},
					{"name": "avatar", "value": {"type": "String", "value": ""}},
					{"name": "info", "value": {"type": "Optional", "value": null}},
					{"name": "links", "value": {"type": "Dictionary", "value": [
						{"key": {"type": "String", "value": "web"}, "value": {"type": "String", "value": "x"}}
					]}}
				]
			}
		}
	}`

	v, err := Decode([]byte(raw))
	require.NoError(t, err)

	s, ok := Unwrap(v).(Composite)
	require.True(t, ok)
	assert.Equal(t, KindStruct, s.Kind)
	assert.Equal(t, "A.ba1132bc08f82fe2.Profile.ReadOnly", s.ID)

	name, ok := s.StringField("name")
	require.True(t, ok)
	assert.Equal(t, "Edoye", name)

	addr, ok := s.AddressField("address")
	require.True(t, ok)
	assert.Equal(t, "0x00000000000000ab", addr.String())

	_, ok = s.StringField("info")
	assert.False(t, ok)
	_, ok = s.StringField("missing")
	assert.False(t, ok)

	links, ok := s.Field("links")
	require.True(t, ok)
	assert.Len(t, links.(Dictionary), 1)
}

func TestDecode_Event(t *testing.T) {
	t.Parallel()

	raw := `{"type":"Event","value":{"id":"flow.AccountCreated","fields":[
		{"name":"address","value":{"type":"Address","value":"0x01cf0e2f2f715450"}}]}}`

	v, err := Decode([]byte(raw))
	require.NoError(t, err)

	ev, ok := v.(Composite)
	require.True(t, ok)
	assert.Equal(t, KindEvent, ev.Kind)
	addr, ok := ev.AddressField("address")
	require.True(t, ok)
	assert.Equal(t, "0x01cf0e2f2f715450", addr.String())
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		give    string
		wantErr string
	}{
		{name: "not json", give: `nope`, wantErr: "invalid JSON-Cadence value"},
		{name: "missing type", give: `{"value":"x"}`, wantErr: "missing type"},
		{name: "bad uint8", give: `{"type":"UInt8","value":"300"}`, wantErr: "invalid UInt8"},
		{name: "bad address", give: `{"type":"Address","value":"0xzz"}`, wantErr: "invalid address"},
		{name: "bad int", give: `{"type":"Int","value":"1.5"}`, wantErr: "invalid Int"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode([]byte(tt.give))
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDecode_Unsupported(t *testing.T) {
	t.Parallel()

	v, err := Decode([]byte(`{"type":"Path","value":{"domain":"storage","identifier":"profile"}}`))
	require.NoError(t, err)

	u, ok := v.(Unsupported)
	require.True(t, ok)
	assert.Equal(t, "Path", u.Type())
}

func TestParseUFix64(t *testing.T) {
	t.Parallel()

	tests := []struct {
		give    string
		want    UFix64
		wantErr string
	}{
		{give: "1000.0", want: 100000000000},
		{give: "0.00000001", want: 1},
		{give: "42", want: 4200000000},
		{give: "1.123456789", wantErr: "too many decimal places"},
		{give: "abc", wantErr: "invalid UFix64"},
	}

	for _, tt := range tests {
		t.Run(tt.give, func(t *testing.T) {
			t.Parallel()

			got, err := ParseUFix64(tt.give)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
