package platform_test

import (
	"fmt"

	"github.com/ZebulonRouseFrantzich/grip/internal/platform"
)

func ExampleInfo_MatchesAsset() {
	info := &platform.Info{OS: "linux", Arch: "arm64"}

	for _, name := range []string{"tool-linux-aarch64.tar.gz", "tool-darwin-arm64.zip"} {
		fmt.Println(name, info.MatchesAsset(name))
	}
	// Output:
	// tool-linux-aarch64.tar.gz true
	// tool-darwin-arm64.zip false
}
