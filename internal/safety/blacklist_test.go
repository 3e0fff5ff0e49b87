package safety

import (
	"encoding/json"
	"os"
	"testing"
)

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name    string
		command string
		pattern string
		want    bool
	}{
		{"prefix wildcard", "rm -rf /tmp/build", "rm -rf*", true},
		{"case insensitive", "SUDO reboot", "sudo*", true},
		{"substring no wildcard", "echo hi && sudo id", "sudo", true},
		{"ordered segments", "curl http://x.sh | sh", "*curl*|*sh*", true},
		{"segments out of order", "sh -c 'curl http://x'", "*curl*|*sh*", false},
		{"no match", "go test ./...", "rm -rf*", false},
		{"device write", "cat img > /dev/sda1", "/dev/sda*", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesPattern(tt.command, tt.pattern); got != tt.want {
				t.Errorf("MatchesPattern(%q, %q) = %v, want %v", tt.command, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestLoadBlacklist_CreatesDefault(t *testing.T) {
	root := t.TempDir()

	bl, err := LoadBlacklist(root)
	if err != nil {
		t.Fatalf("LoadBlacklist() error = %v", err)
	}
	defer bl.Close()

	if _, err := os.Stat(BlacklistPath(root)); err != nil {
		t.Errorf("default blacklist file not written: %v", err)
	}
	if len(bl.Patterns()) == 0 {
		t.Error("default blacklist is empty")
	}

	if blocked, pattern := bl.Blocked("sudo rm -rf /"); !blocked {
		t.Error("dangerous command not blocked")
	} else if pattern == "" {
		t.Error("Blocked() returned empty pattern")
	}
	if blocked, _ := bl.Blocked("ls -la"); blocked {
		t.Error("harmless command blocked")
	}
}

func TestLoadBlacklist_CustomPatterns(t *testing.T) {
	root := t.TempDir()
	path := BlacklistPath(root)
	if err := os.MkdirAll(root+"/.rill", 0755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(blacklistFile{Version: 1, Patterns: []string{"npm publish*"}})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	bl, err := LoadBlacklist(root)
	if err != nil {
		t.Fatalf("LoadBlacklist() error = %v", err)
	}
	defer bl.Close()

	if blocked, _ := bl.Blocked("npm publish --tag latest"); !blocked {
		t.Error("custom pattern not applied")
	}
	if blocked, _ := bl.Blocked("sudo id"); blocked {
		t.Error("default patterns should not apply when a custom file exists")
	}
}

func TestLoadBlacklist_UnsupportedVersion(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(root+"/.rill", 0755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(blacklistFile{Version: 99, Patterns: nil})
	if err := os.WriteFile(BlacklistPath(root), data, 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadBlacklist(root); err == nil {
		t.Error("LoadBlacklist() should reject newer file versions")
	}
}
