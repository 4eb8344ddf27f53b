package config

import (
	"testing"
)

func TestSandboxLuaVM(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"string operations allowed", `x = string.upper("hello")`, false},
		{"table operations allowed", `t = {1, 2, 3}; table.insert(t, 4)`, false},
		{"math operations allowed", `x = math.floor(3.7)`, false},
		{"pairs allowed", `for k, v in pairs({a = 1}) do end`, false},

		{"os.execute blocked", `os.execute("ls")`, true},
		{"os.getenv blocked", `x = os.getenv("PATH")`, true},
		{"io.open blocked", `f = io.open("/etc/passwd")`, true},
		{"require blocked", `require("socket")`, true},
		{"dofile blocked", `dofile("/tmp/x.lua")`, true},
		{"loadstring blocked", `loadstring("return 1")()`, true},
		{"debug blocked", `debug.getinfo(1)`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			L := newSandboxedVM()
			defer L.Close()

			err := L.DoString(tt.code)
			if (err != nil) != tt.wantErr {
				t.Errorf("DoString(%q) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			}
		})
	}
}
