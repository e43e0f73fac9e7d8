package sandbox

import (
	"encoding/json"
	"fmt"

	"github.com/foremanhq/foreman/internal/provider"
	"github.com/foremanhq/foreman/internal/schema"
)

type readFileArgs struct {
	Path string `json:"path" jsonschema:"required,description=The path of the file to read"`
}

type writeFileArgs struct {
	Path    string `json:"path" jsonschema:"required,description=The path of the file to write"`
	Content string `json:"content" jsonschema:"required,description=The content to write to the file"`
}

type editFileArgs struct {
	Path      string `json:"path" jsonschema:"required,description=The path of the file to edit"`
	OldString string `json:"old_string" jsonschema:"required,description=The exact text to replace; must occur exactly once in the file"`
	NewString string `json:"new_string" jsonschema:"required,description=The text to replace it with"`
}

type listFilesArgs struct {
	Path string `json:"path" jsonschema:"required,description=Directory to list, or a glob pattern containing * or ? to search recursively"`
}

type searchFilesArgs struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Regular expression to search file contents for"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search in; defaults to the working directory"`
	Include string `json:"include,omitempty" jsonschema:"description=Glob pattern to restrict which files are searched"`
}

type runCommandArgs struct {
	Command string `json:"command" jsonschema:"required,description=Shell command to run in the working directory"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds before the command is killed"`
}

type taskCompleteArgs struct {
	Summary string `json:"summary" jsonschema:"required,description=Summary of what was accomplished"`
}

// Definitions returns the seven fixed tools' provider-agnostic schemas,
// the closed set spec.md §4.4 exposes to every step. Each schema is
// reflected off the Go struct Execute unmarshals into, so the wire shape
// and the dispatch shape can never drift apart.
func Definitions() []provider.ToolDefinition {
	return []provider.ToolDefinition{
		{
			Name:        "read_file",
			Description: "Read the contents of a file.",
			InputSchema: schema.Generate[readFileArgs](),
		},
		{
			Name:        "write_file",
			Description: "Write content to a file, creating parent directories as needed.",
			InputSchema: schema.Generate[writeFileArgs](),
		},
		{
			Name:        "edit_file",
			Description: "Replace a unique occurrence of old_string with new_string in a file.",
			InputSchema: schema.Generate[editFileArgs](),
		},
		{
			Name:        "list_files",
			Description: "List files in a directory, or glob recursively if path contains * or ?.",
			InputSchema: schema.Generate[listFilesArgs](),
		},
		{
			Name:        "search_files",
			Description: "Recursively search file contents for a regex pattern.",
			InputSchema: schema.Generate[searchFilesArgs](),
		},
		{
			Name:        "run_command",
			Description: "Run a shell command in the working directory.",
			InputSchema: schema.Generate[runCommandArgs](),
		},
		{
			Name:        "task_complete",
			Description: "Signal that the task is finished, with a summary of the outcome.",
			InputSchema: schema.Generate[taskCompleteArgs](),
		},
	}
}

// Execute dispatches a normalized tool call by name, unmarshaling its raw
// JSON input into the shape each tool expects. Unknown tool names return
// an "Error:"-prefixed string rather than a Go error, matching the rest
// of the sandbox's contract.
func (s *Sandbox) Execute(name string, input json.RawMessage) string {
	switch name {
	case "read_file":
		var args readFileArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return errResult("invalid input: %s", err)
		}
		return s.ReadFile(args.Path)

	case "write_file":
		var args writeFileArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return errResult("invalid input: %s", err)
		}
		return s.WriteFile(args.Path, args.Content)

	case "edit_file":
		var args editFileArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return errResult("invalid input: %s", err)
		}
		return s.EditFile(args.Path, args.OldString, args.NewString)

	case "list_files":
		var args listFilesArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return errResult("invalid input: %s", err)
		}
		return s.ListFiles(args.Path)

	case "search_files":
		var args searchFilesArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return errResult("invalid input: %s", err)
		}
		return s.SearchFiles(args.Pattern, args.Path, args.Include)

	case "run_command":
		var args runCommandArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return errResult("invalid input: %s", err)
		}
		return s.RunCommand(args.Command, args.Timeout)

	case "task_complete":
		var args taskCompleteArgs
		if err := json.Unmarshal(input, &args); err != nil {
			return errResult("invalid input: %s", err)
		}
		return s.TaskComplete(args.Summary)

	default:
		return fmt.Sprintf("Error: Unknown tool '%s'", name)
	}
}
