package rest

import "net/http"

// Route catalog. Templates use the server's parameter names; the major
// parameters (channel.id, guild.id, webhook.id) drive bucket separation.
var (
	// Gateway discovery
	GetGateway    = Route{http.MethodGet, "/gateway"}
	GetGatewayBot = Route{http.MethodGet, "/gateway/bot"}

	// Channels
	GetChannel    = Route{http.MethodGet, "/channels/{channel.id}"}
	ModifyChannel = Route{http.MethodPatch, "/channels/{channel.id}"}
	DeleteChannel = Route{http.MethodDelete, "/channels/{channel.id}"}

	// Messages
	GetChannelMessages = Route{http.MethodGet, "/channels/{channel.id}/messages"}
	GetChannelMessage  = Route{http.MethodGet, "/channels/{channel.id}/messages/{message.id}"}
	CreateMessage      = Route{http.MethodPost, "/channels/{channel.id}/messages"}
	EditMessage        = Route{http.MethodPatch, "/channels/{channel.id}/messages/{message.id}"}
	DeleteMessage      = Route{http.MethodDelete, "/channels/{channel.id}/messages/{message.id}"}
	CreateReaction     = Route{http.MethodPut, "/channels/{channel.id}/messages/{message.id}/reactions/{emoji}/@me"}

	// Guilds
	GetGuild         = Route{http.MethodGet, "/guilds/{guild.id}"}
	GetGuildChannels = Route{http.MethodGet, "/guilds/{guild.id}/channels"}
	GetGuildMember   = Route{http.MethodGet, "/guilds/{guild.id}/members/{user.id}"}
	ListGuildMembers = Route{http.MethodGet, "/guilds/{guild.id}/members"}

	// Users
	GetCurrentUser = Route{http.MethodGet, "/users/@me"}
	GetUser        = Route{http.MethodGet, "/users/{user.id}"}
	CreateDM       = Route{http.MethodPost, "/users/@me/channels"}

	// Webhooks
	GetWebhook     = Route{http.MethodGet, "/webhooks/{webhook.id}"}
	ExecuteWebhook = Route{http.MethodPost, "/webhooks/{webhook.id}/{webhook.token}"}
)
