package host

import (
	"strings"

	"github.com/beevik/cmd"
)

// A command describes a shell command and the host callback that handles
// it.
type command struct {
	path        string // full name, including the command group
	name        string
	brief       string
	description string
	usage       string
	fn          func(h *Host, c cmd.Selection) error
}

var (
	cmds     *cmd.Tree
	commands []*command // in help display order
)

func addCommand(t *cmd.Tree, group string, c *command) {
	c.path = strings.TrimSpace(group + " " + c.name)
	t.AddCommand(cmd.CommandDescriptor{
		Name:        c.name,
		Brief:       c.brief,
		Description: c.description,
		Usage:       c.usage,
		Data:        c,
	})
	commands = append(commands, c)
}

func init() {
	root := cmd.NewTree(cmd.TreeDescriptor{Name: "godasm"})
	addCommand(root, "", &command{
		name:        "help",
		description: "Display help for a command.",
		usage:       "help [<command>]",
		fn:          (*Host).cmdHelp,
	})
	addCommand(root, "", &command{
		name:  "annotate",
		brief: "Annotate an address",
		description: "Provide a code annotation at an address of the" +
			" assembled image. When disassembling code at this address, the" +
			" annotation will be displayed. Omit the string to remove the" +
			" annotation.",
		usage: "annotate <address> [<string>]",
		fn:    (*Host).cmdAnnotate,
	})

	// Assemble commands
	as := root.AddSubtree(cmd.TreeDescriptor{Name: "assemble", Brief: "Assemble commands"})
	addCommand(as, "assemble", &command{
		name:  "file",
		brief: "Assemble a file from disk and save the binary to disk",
		description: "Run the cross-assembler on the specified file," +
			" producing a binary file and source map file if successful." +
			" The assembled image becomes the shell's current image.",
		usage: "assemble file <filename>",
		fn:    (*Host).cmdAssembleFile,
	})
	addCommand(as, "assemble", &command{
		name:  "interactive",
		brief: "Start interactive assembly mode",
		description: "Start interactive assembler mode. Each line typed" +
			" is collected as assembly source until a line containing only" +
			" a period is entered. The source is then assembled starting" +
			" at the specified address.",
		usage: "assemble interactive [<address>]",
		fn:    (*Host).cmdAssembleInteractive,
	})

	addCommand(root, "", &command{
		name:  "disassemble",
		brief: "Disassemble code",
		description: "Disassemble machine code in the current image" +
			" starting at the requested address. The number of" +
			" instructions to disassemble may be specified as an option.",
		usage: "disassemble [<address>] [<count>]",
		fn:    (*Host).cmdDisassemble,
	})
	addCommand(root, "", &command{
		name:  "dump",
		brief: "Dump assembler state",
		description: "Pretty-print the internal state of the most recent" +
			" assembly. The item may be result, symbols, sourcemap or" +
			" diagnostics.",
		usage: "dump [<item>]",
		fn:    (*Host).cmdDump,
	})
	addCommand(root, "", &command{
		name:  "evaluate",
		brief: "Evaluate an expression",
		description: "Evaluate an assembler expression. Symbols defined" +
			" by the most recent assembly may be used.",
		usage: "evaluate <expression>",
		fn:    (*Host).cmdEval,
	})
	addCommand(root, "", &command{
		name:  "list",
		brief: "List source code",
		description: "List the source code lines that generated the" +
			" machine code at the requested address. The number of lines" +
			" to display may be specified as an option.",
		usage: "list [<address>] [<count>]",
		fn:    (*Host).cmdList,
	})
	addCommand(root, "", &command{
		name:  "load",
		brief: "Load a binary file",
		description: "Load a binary file as the shell's current image." +
			" If the file has an associated source map, it will be loaded" +
			" too. If the file contains raw binary data, you must specify" +
			" the address where the data will be loaded.",
		usage: "load <filename> [<address>]",
		fn:    (*Host).cmdLoad,
	})

	// Memory commands
	mem := root.AddSubtree(cmd.TreeDescriptor{Name: "memory", Brief: "Memory commands"})
	addCommand(mem, "memory", &command{
		name:  "dump",
		brief: "Dump image bytes at address",
		description: "Dump the contents of the current image starting" +
			" from the specified address. The number of bytes to dump may" +
			" be specified as an option.",
		usage: "memory dump <address> [<bytes>]",
		fn:    (*Host).cmdMemoryDump,
	})

	addCommand(root, "", &command{
		name:        "quit",
		brief:       "Quit the program",
		description: "Quit the program.",
		usage:       "quit",
		fn:          (*Host).cmdQuit,
	})
	addCommand(root, "", &command{
		name:  "set",
		brief: "Set a configuration variable",
		description: "Set the value of a configuration variable. To see the" +
			" current values of all configuration variables, type set" +
			" without any arguments.",
		usage: "set [<var> <value>]",
		fn:    (*Host).cmdSet,
	})

	// Show commands
	show := root.AddSubtree(cmd.TreeDescriptor{Name: "show", Brief: "Display assembly results"})
	addCommand(show, "show", &command{
		name:        "diagnostics",
		brief:       "Display assembly diagnostics",
		description: "Display the errors, warnings and messages reported by the most recent assembly.",
		usage:       "show diagnostics",
		fn:          (*Host).cmdDiagnostics,
	})
	addCommand(show, "show", &command{
		name:  "listing",
		brief: "Display the assembly listing",
		description: "Display the listing produced by the most recent" +
			" assembly.",
		usage: "show listing",
		fn:    (*Host).cmdListing,
	})
	addCommand(show, "show", &command{
		name:  "symbols",
		brief: "Display the symbol table",
		description: "Display the symbol table of the most recent" +
			" assembly.",
		usage: "show symbols",
		fn:    (*Host).cmdSymbols,
	})

	// Add command shortcuts.
	root.AddShortcut("a", "assemble file")
	root.AddShortcut("ai", "assemble interactive")
	root.AddShortcut("d", "disassemble")
	root.AddShortcut("e", "evaluate")
	root.AddShortcut("l", "list")
	root.AddShortcut("m", "memory dump")
	root.AddShortcut("sd", "show diagnostics")
	root.AddShortcut("sl", "show listing")
	root.AddShortcut("ss", "show symbols")
	root.AddShortcut("?", "help")

	cmds = root
}
