package rest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/chatkit/errors"
)

type snowflake uint64

func (s snowflake) String() string { return "712398471239847" }

func TestRoute_CompileSubstitutesParams(t *testing.T) {
	route, err := CreateMessage.Compile("123456")
	require.NoError(t, err)

	assert.Equal(t, "POST", route.Method())
	assert.Equal(t, "/channels/123456/messages", route.Path())
	assert.Equal(t, "123456", route.MajorParam())
	assert.Equal(t, "POST /channels/{channel.id}/messages channel.id", route.RouteKey())
}

func TestRoute_CompileCapturesFirstMajorParamOnly(t *testing.T) {
	route, err := GetChannelMessage.Compile("123", "456")
	require.NoError(t, err)

	assert.Equal(t, "/channels/123/messages/456", route.Path())
	assert.Equal(t, "123", route.MajorParam())
	assert.Equal(t, "GET /channels/{channel.id}/messages/{message.id} channel.id", route.RouteKey())
}

func TestRoute_CompileNoParams(t *testing.T) {
	route, err := GetGatewayBot.Compile()
	require.NoError(t, err)

	assert.Equal(t, "/gateway/bot", route.Path())
	assert.Empty(t, route.MajorParam())
	assert.Equal(t, "GET /gateway/bot", route.RouteKey())
}

func TestRoute_CompileEscapesValues(t *testing.T) {
	route, err := CreateReaction.Compile("123", "456", "🔥")
	require.NoError(t, err)

	assert.Equal(t, "/channels/123/messages/456/reactions/%F0%9F%94%A5/@me", route.Path())
	assert.Equal(t, "123", route.MajorParam())
}

func TestRoute_CompileAcceptsStringersAndNumbers(t *testing.T) {
	route, err := GetChannel.Compile(snowflake(0))
	require.NoError(t, err)
	assert.Equal(t, "/channels/712398471239847", route.Path())

	route, err = GetUser.Compile(42)
	require.NoError(t, err)
	assert.Equal(t, "/users/42", route.Path())
}

func TestRoute_CompileErrors(t *testing.T) {
	tests := []struct {
		name    string
		route   Route
		params  []any
		wantMsg string
	}{
		{
			name:    "missing value",
			route:   GetChannel,
			params:  nil,
			wantMsg: "missing value",
		},
		{
			name:    "surplus values",
			route:   GetChannel,
			params:  []any{"123", "456"},
			wantMsg: "surplus parameters",
		},
		{
			name:    "empty value",
			route:   GetChannel,
			params:  []any{""},
			wantMsg: "empty value",
		},
		{
			name:    "unterminated placeholder",
			route:   Route{"GET", "/broken/{channel.id"},
			params:  []any{"123"},
			wantMsg: "unterminated placeholder",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.route.Compile(tt.params...)
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRoute_MustCompilePanics(t *testing.T) {
	assert.Panics(t, func() { GetChannel.MustCompile() })
	assert.NotPanics(t, func() { GetChannel.MustCompile("123") })
}

func TestRoute_DistinctMajorValuesDistinctOnlyInParam(t *testing.T) {
	a, err := GetChannel.Compile("111")
	require.NoError(t, err)
	b, err := GetChannel.Compile("222")
	require.NoError(t, err)

	// Same route group, different bucket diversifier.
	assert.Equal(t, a.RouteKey(), b.RouteKey())
	assert.NotEqual(t, a.MajorParam(), b.MajorParam())
}

func TestRoute_MinorParamsShareRouteKey(t *testing.T) {
	a, err := DeleteMessage.Compile("123", "900")
	require.NoError(t, err)
	b, err := DeleteMessage.Compile("123", "901")
	require.NoError(t, err)

	assert.Equal(t, a.RouteKey(), b.RouteKey())
	assert.Equal(t, a.MajorParam(), b.MajorParam())
}

func TestRoute_WebhookMajorParam(t *testing.T) {
	route, err := ExecuteWebhook.Compile("987", "secret-token")
	require.NoError(t, err)

	assert.Equal(t, "987", route.MajorParam())
	assert.Equal(t, "POST /webhooks/{webhook.id}/{webhook.token} webhook.id", route.RouteKey())
}

func TestRoute_GuildMajorParam(t *testing.T) {
	route, err := GetGuildMember.Compile("555", "777")
	require.NoError(t, err)

	assert.Equal(t, "555", route.MajorParam())
	assert.Equal(t, "GET /guilds/{guild.id}/members/{user.id} guild.id", route.RouteKey())
}

func TestCompiledRoute_URL(t *testing.T) {
	route, err := GetChannel.Compile("123")
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com/channels/123", route.URL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/channels/123", route.URL("https://api.example.com/"))
}
