package tools

import "github.com/travofoz/T-5000/config"

// RegisterFilesystem adds the file tools, bound to the configured
// hidden/read-only path policy.
func RegisterFilesystem(b *Builder, cfg *config.Settings) {
	fs := &fsTools{access: &cfg.FilesystemAccess}
	b.Register(Definition{
		Name:        "read_file",
		Description: "Reads the entire content of a file.",
		Args:        readFileArgs{},
		Run:         fs.readFile,
	})
	b.Register(Definition{
		Name:        "write_file",
		Description: "Writes content to a file, creating parent directories as needed.",
		Args:        writeFileArgs{},
		Run:         fs.writeFile,
	})
	b.Register(Definition{
		Name:        "list_files",
		Description: "Lists the entries of a directory.",
		Args:        listFilesArgs{},
		Run:         fs.listFiles,
	})
	b.Register(Definition{
		Name:        "edit_file",
		Description: "Replaces an exact text fragment in a file with new text.",
		Args:        editFileArgs{},
		Run:         fs.editFile,
	})
}

// RegisterCommand adds shell command execution, bound to the configured
// allow-list and timeout.
func RegisterCommand(b *Builder, cfg *config.Settings) {
	c := &commandTools{allowed: cfg.AllowedCommands, timeout: cfg.CommandTimeoutDuration()}
	b.Register(Definition{
		Name:        "run_shell_command",
		Description: "Executes a shell command and returns its combined output.",
		Args:        shellCommandArgs{},
		Run:         c.runShellCommand,
	})
}

// RegisterNetwork adds the network diagnostic tools.
func RegisterNetwork(b *Builder, cfg *config.Settings) {
	n := &networkTools{timeout: cfg.CommandTimeoutDuration()}
	b.Register(Definition{
		Name:        "ping_host",
		Description: "Sends ICMP echo requests to a host and reports the results.",
		Args:        pingHostArgs{},
		Run:         n.pingHost,
	})
	b.Register(Definition{
		Name:        "dns_lookup",
		Description: "Resolves a hostname to its IP addresses.",
		Args:        dnsLookupArgs{},
		Run:         n.dnsLookup,
	})
	b.Register(Definition{
		Name:        "http_fetch",
		Description: "Fetches a URL with an HTTP GET request and returns the response.",
		Args:        httpFetchArgs{},
		Run:         n.httpFetch,
	})
}

// RegisterProcess adds the process management tools.
func RegisterProcess(b *Builder, cfg *config.Settings) {
	p := &processTools{timeout: cfg.CommandTimeoutDuration()}
	b.Register(Definition{
		Name:        "list_processes",
		Description: "Lists running processes, optionally filtered by name.",
		Args:        listProcessesArgs{},
		Run:         p.listProcesses,
	})
	b.Register(Definition{
		Name:        "kill_process",
		Description: "Sends SIGTERM to a process by its PID.",
		Args:        killProcessArgs{},
		Run:         p.killProcess,
	})
}

// RegisterBuiltins adds every built-in tool to the builder.
func RegisterBuiltins(b *Builder, cfg *config.Settings) {
	RegisterFilesystem(b, cfg)
	RegisterCommand(b, cfg)
	RegisterNetwork(b, cfg)
	RegisterProcess(b, cfg)
}
