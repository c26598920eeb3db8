package kickoff

const (
	SCOPE_CONFIGURATION = "configuration"
	SCOPE_API_SERVER    = "api_server"
	SCOPE_STREAMS       = "streams"
	SCOPE_SETTINGS      = "settings"
	SCOPE_TRANSCODER    = "transcoder"
	SCOPE_WS_HANDLER    = "ws_handler"
	SCOPE_SNAPSHOT      = "snapshot"
	SCOPE_TITLES        = "titles"

	EVENT_API_PREPARE     = "api_server_prepare"
	EVENT_API_START       = "api_server_start"
	EVENT_API_CORS_ENABLE = "api_server_cors_enable"
	EVENT_API_AUTH_ENABLE = "api_server_auth_enable"
	EVENT_API_REQUEST     = "api_request"

	EVENT_STREAM_APPLY    = "stream_apply"
	EVENT_SETTINGS_UPDATE = "settings_update"

	EVENT_TRANSCODER_START = "transcoder_start"
	EVENT_TRANSCODER_STOP  = "transcoder_stop"
	EVENT_TRANSCODER_EXIT  = "transcoder_exit"

	EVENT_WS_UPGRADER  = "ws_upgrader"
	EVENT_WS_BROADCAST = "ws_broadcast"

	EVENT_SNAPSHOT_LOAD = "snapshot_load"
	EVENT_SNAPSHOT_SAVE = "snapshot_save"

	EVENT_TITLES_OPEN  = "titles_open"
	EVENT_TITLES_FETCH = "titles_fetch"
)
