// Package shell makes installed executables reachable from new shells by
// persistently extending the user's PATH.
//
// On Unix-like systems the PATH lives in the startup file of the user's
// shell: ~/.bashrc, ~/.zshrc, ~/.config/fish/conf.d/grip.fish, or ~/.profile
// for anything else. grip only ever touches lines it wrote itself, which end
// in "# grip":
//
//	export PATH="/home/me/.local/share/grip/packages/foo/1.2.0:$PATH"  # grip
//	fish_add_path "/home/me/.local/share/grip/packages/foo/1.2.0"  # grip
//
// On Windows the user environment variable Path in HKCU\Environment is
// edited instead. GRIP_RC_FILE forces the rc file strategy on any platform.
//
// Both strategies are idempotent: a directory that is already present is not
// added again and comparison is by exact string.
package shell
