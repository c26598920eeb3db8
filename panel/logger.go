package panel

const (
	SCOPE_RESOURCE   = "resource"
	SCOPE_CONTROLLER = "controller"

	EVENT_RESOURCE_REQUEST  = "resource_request"
	EVENT_RESOURCE_RESPONSE = "resource_response"

	EVENT_SETTINGS_FETCH = "settings_fetch"
	EVENT_SETTINGS_SAVE  = "settings_save"
	EVENT_STREAMS_FETCH  = "streams_fetch"
	EVENT_STREAM_SAVE    = "stream_save"
	EVENT_STREAM_SWITCH  = "stream_switch"
	EVENT_RESOLUTION     = "resolution_parse"
)
