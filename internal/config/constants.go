package config

// Lua schema field names and globals
const (
	luaGlobalGrip        = "grip"
	luaFieldRegistries   = "registries"
	luaFieldOptions      = "options"
	luaFieldName         = "name"
	luaFieldURL          = "url"
	luaFieldPriority     = "priority"
	luaFieldIndexTTLMins = "index_ttl_minutes"
)

// Resource limits for user configuration.
const (
	MaxConfigSize    = 1 << 20
	MaxRegistryCount = 100
	MaxNameLength    = 64
)

// FileName is the configuration document inside the config directory.
const FileName = "config.lua"
