package api

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ShayCichocki/rill/internal/permissions"
	"github.com/ShayCichocki/rill/internal/safety"
)

func allowAll() *permissions.Gate {
	return permissions.NewGate(nil, permissions.PrompterFunc(
		func(ctx context.Context, req permissions.Request) (permissions.Decision, error) {
			return permissions.DecisionAllowOnce, nil
		}))
}

func denyAll() *permissions.Gate {
	return permissions.NewGate(nil, permissions.PrompterFunc(
		func(ctx context.Context, req permissions.Request) (permissions.Decision, error) {
			return permissions.DecisionDeny, nil
		}))
}

func TestToolExecutor_UnknownTool(t *testing.T) {
	executor := NewToolExecutor(t.TempDir(), nil, nil)

	result := executor.Execute(context.Background(), "UnknownTool", json.RawMessage(`{}`))

	if !result.IsError {
		t.Error("Expected error for unknown tool")
	}
	if !strings.Contains(result.Content, "Unknown tool") {
		t.Errorf("Error message = %q, should contain 'Unknown tool'", result.Content)
	}
}

func TestToolExecutor_Read(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("line1\nline2\nline3"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	executor := NewToolExecutor(tmpDir, nil, nil)

	input, _ := json.Marshal(map[string]interface{}{
		"file_path": testFile,
	})

	result := executor.Execute(context.Background(), "Read", input)

	if result.IsError {
		t.Fatalf("Read failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "line1") {
		t.Error("Result should contain file content")
	}
	if !strings.Contains(result.Content, "1\t") {
		t.Error("Result should have line numbers")
	}
}

func TestToolExecutor_Read_WithOffset(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	if err := os.WriteFile(testFile, []byte("line1\nline2\nline3\nline4\nline5"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	executor := NewToolExecutor(tmpDir, nil, nil)

	input, _ := json.Marshal(map[string]interface{}{
		"file_path": testFile,
		"offset":    3,
		"limit":     2,
	})

	result := executor.Execute(context.Background(), "Read", input)

	if result.IsError {
		t.Fatalf("Read failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "line3") || !strings.Contains(result.Content, "line4") {
		t.Error("Result should contain line3 and line4")
	}
	if strings.Contains(result.Content, "line1") || strings.Contains(result.Content, "line5") {
		t.Error("Result should only contain the requested window")
	}
}

func TestToolExecutor_Write(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "newfile.txt")

	executor := NewToolExecutor(tmpDir, allowAll(), nil)

	input, _ := json.Marshal(map[string]interface{}{
		"file_path": testFile,
		"content":   "hello world",
	})

	result := executor.Execute(context.Background(), "Write", input)

	if result.IsError {
		t.Fatalf("Write failed: %s", result.Content)
	}

	content, err := os.ReadFile(testFile)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(content) != "hello world" {
		t.Errorf("File content = %q, want %q", string(content), "hello world")
	}
}

func TestToolExecutor_Write_Denied(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "newfile.txt")

	executor := NewToolExecutor(tmpDir, denyAll(), nil)

	input, _ := json.Marshal(map[string]interface{}{
		"file_path": testFile,
		"content":   "hello world",
	})

	result := executor.Execute(context.Background(), "Write", input)

	if !result.IsError {
		t.Fatal("Expected denied write to report an error result")
	}
	if !strings.Contains(result.Content, "Permission denied") {
		t.Errorf("Result = %q, should mention permission denial", result.Content)
	}
	if _, err := os.Stat(testFile); !os.IsNotExist(err) {
		t.Error("Denied write must not create the file")
	}
}

func TestToolExecutor_Edit(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "edit.txt")
	if err := os.WriteFile(testFile, []byte("hello world"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	executor := NewToolExecutor(tmpDir, allowAll(), nil)

	input, _ := json.Marshal(map[string]interface{}{
		"file_path":  testFile,
		"old_string": "world",
		"new_string": "universe",
	})

	result := executor.Execute(context.Background(), "Edit", input)

	if result.IsError {
		t.Fatalf("Edit failed: %s", result.Content)
	}

	content, _ := os.ReadFile(testFile)
	if string(content) != "hello universe" {
		t.Errorf("File content = %q, want %q", string(content), "hello universe")
	}
}

func TestToolExecutor_Edit_NotUnique(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "edit.txt")
	if err := os.WriteFile(testFile, []byte("hello hello world"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	executor := NewToolExecutor(tmpDir, allowAll(), nil)

	input, _ := json.Marshal(map[string]interface{}{
		"file_path":  testFile,
		"old_string": "hello",
		"new_string": "hi",
	})

	result := executor.Execute(context.Background(), "Edit", input)

	if !result.IsError {
		t.Error("Expected error for non-unique string")
	}
	if !strings.Contains(result.Content, "must be unique") {
		t.Errorf("Error = %q, should mention 'must be unique'", result.Content)
	}
}

func TestToolExecutor_Edit_ReplaceAll(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "edit.txt")
	if err := os.WriteFile(testFile, []byte("hello hello world"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	executor := NewToolExecutor(tmpDir, allowAll(), nil)

	input, _ := json.Marshal(map[string]interface{}{
		"file_path":   testFile,
		"old_string":  "hello",
		"new_string":  "hi",
		"replace_all": true,
	})

	result := executor.Execute(context.Background(), "Edit", input)

	if result.IsError {
		t.Fatalf("Edit failed: %s", result.Content)
	}

	content, _ := os.ReadFile(testFile)
	if string(content) != "hi hi world" {
		t.Errorf("File content = %q, want %q", string(content), "hi hi world")
	}
}

func TestToolExecutor_Bash(t *testing.T) {
	executor := NewToolExecutor(t.TempDir(), allowAll(), nil)

	input, _ := json.Marshal(map[string]interface{}{
		"command": "echo hello",
	})

	result := executor.Execute(context.Background(), "Bash", input)

	if result.IsError {
		t.Fatalf("Bash failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "hello") {
		t.Errorf("Result = %q, should contain 'hello'", result.Content)
	}
}

func TestToolExecutor_Bash_Failure(t *testing.T) {
	executor := NewToolExecutor(t.TempDir(), allowAll(), nil)

	input, _ := json.Marshal(map[string]interface{}{
		"command": "exit 1",
	})

	result := executor.Execute(context.Background(), "Bash", input)

	if !result.IsError {
		t.Error("Expected error for failing command")
	}
}

func TestToolExecutor_Bash_Blacklisted(t *testing.T) {
	tmpDir := t.TempDir()
	blacklist, err := safety.LoadBlacklist(tmpDir)
	if err != nil {
		t.Fatalf("LoadBlacklist: %v", err)
	}

	executor := NewToolExecutor(tmpDir, allowAll(), blacklist)

	input, _ := json.Marshal(map[string]interface{}{
		"command": "rm -rf /",
	})

	result := executor.Execute(context.Background(), "Bash", input)

	if !result.IsError {
		t.Fatal("Expected blacklisted command to be blocked")
	}
	if !strings.Contains(result.Content, "blocked") {
		t.Errorf("Result = %q, should say the command was blocked", result.Content)
	}
}

func TestToolExecutor_Bash_BlacklistBeforePermission(t *testing.T) {
	tmpDir := t.TempDir()
	blacklist, err := safety.LoadBlacklist(tmpDir)
	if err != nil {
		t.Fatalf("LoadBlacklist: %v", err)
	}

	prompted := false
	gate := permissions.NewGate(nil, permissions.PrompterFunc(
		func(ctx context.Context, req permissions.Request) (permissions.Decision, error) {
			prompted = true
			return permissions.DecisionAllowOnce, nil
		}))

	executor := NewToolExecutor(tmpDir, gate, blacklist)

	input, _ := json.Marshal(map[string]interface{}{
		"command": "sudo reboot",
	})

	result := executor.Execute(context.Background(), "Bash", input)

	if !result.IsError {
		t.Fatal("Expected blacklisted command to be blocked")
	}
	if prompted {
		t.Error("Blocked command must never reach the permission prompt")
	}
}

func TestToolExecutor_Glob(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "file1.go"), []byte(""), 0644)
	os.WriteFile(filepath.Join(tmpDir, "file2.go"), []byte(""), 0644)
	os.WriteFile(filepath.Join(tmpDir, "file.txt"), []byte(""), 0644)

	executor := NewToolExecutor(tmpDir, nil, nil)

	input, _ := json.Marshal(map[string]interface{}{
		"pattern": "*.go",
		"path":    tmpDir,
	})

	result := executor.Execute(context.Background(), "Glob", input)

	if result.IsError {
		t.Fatalf("Glob failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "file1.go") || !strings.Contains(result.Content, "file2.go") {
		t.Error("Result should contain both .go files")
	}
	if strings.Contains(result.Content, "file.txt") {
		t.Error("Result should not contain file.txt")
	}
}

func TestToolExecutor_ListDir(t *testing.T) {
	tmpDir := t.TempDir()
	os.WriteFile(filepath.Join(tmpDir, "file1.txt"), []byte(""), 0644)
	os.Mkdir(filepath.Join(tmpDir, "subdir"), 0755)

	executor := NewToolExecutor(tmpDir, nil, nil)

	input, _ := json.Marshal(map[string]interface{}{
		"path": tmpDir,
	})

	result := executor.Execute(context.Background(), "ListDir", input)

	if result.IsError {
		t.Fatalf("ListDir failed: %s", result.Content)
	}
	if !strings.Contains(result.Content, "file1.txt") {
		t.Error("Result should contain file1.txt")
	}
	if !strings.Contains(result.Content, "subdir") {
		t.Error("Result should contain subdir")
	}
}

func TestFormatToolAction(t *testing.T) {
	readInput, _ := json.Marshal(map[string]interface{}{"file_path": "/path/to/file.go"})
	bashInput, _ := json.Marshal(map[string]interface{}{"command": "go build ./..."})

	tests := []struct {
		tool  string
		input json.RawMessage
		want  string
	}{
		{"Read", readInput, "file.go"},
		{"Write", readInput, "file.go"},
		{"Bash", bashInput, "Running"},
		{EscalateToolName, json.RawMessage(`{}`), "escalation"},
		{"UnknownTool", json.RawMessage(`{}`), "UnknownTool"},
	}

	for _, tt := range tests {
		t.Run(tt.tool, func(t *testing.T) {
			action := FormatToolAction(tt.tool, tt.input)
			if !strings.Contains(action, tt.want) {
				t.Errorf("FormatToolAction(%s) = %q, should contain %q", tt.tool, action, tt.want)
			}
		})
	}
}
