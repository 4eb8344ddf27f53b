// Package config reads and writes grip's configuration document, config.lua.
//
// The document is Lua evaluated in a sandboxed gopher-lua VM and must define
// a global "grip" table:
//
//	grip = {
//	  registries = {
//	    { name = "default", url = "https://...", priority = 0 },
//	    platform.when(platform.is_linux, { name = "work", url = "git@host:org/index.git", priority = 10 }),
//	  },
//	  options = { index_ttl_minutes = 60 },
//	}
//
// A read-only platform table is injected before evaluation so entries may
// depend on the host. The os, io and debug libraries and all code loading
// functions are removed from the VM.
//
// The registry named "default" always exists: it is added on load when the
// document omits it. Save regenerates the whole document with Generator and
// replaces the file atomically, so hand-written conditionals do not survive a
// "grip registry add".
package config
