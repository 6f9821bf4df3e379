// Package mcp bridges tools served by external MCP server subprocesses into
// the local tool registry.
package mcp

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/travofoz/T-5000/config"
	"github.com/travofoz/T-5000/errors"
	"github.com/travofoz/T-5000/tools"
)

// Client manages the connection to a single MCP server subprocess and exposes
// its tools as registry definitions.
type Client struct {
	name string
	cmd  *exec.Cmd
	conn *mcpsdk.ClientSession
	defs []tools.Definition
}

// Connect starts the configured MCP server subprocess, discovers its tools
// and wraps each one as a tools.Definition.
func Connect(ctx context.Context, server config.MCPServer) (*Client, error) {
	cmd := exec.Command(server.Command, server.Args...)
	cmd.Stderr = os.Stderr
	sdkClient := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "t5000", Version: "v1.0.0"}, nil)
	conn, err := sdkClient.Connect(ctx, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		cmd.Process.Kill()
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", server.Name)
	}
	c := &Client{name: server.Name, cmd: cmd, conn: conn}

	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			cmd.Process.Kill()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", server.Name)
		}
		for _, t := range list.Tools {
			c.defs = append(c.defs, c.definition(t))
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	fmt.Printf("INFO: Initialized MCP client for '%s' with %d tools.\n", server.Name, len(c.defs))
	return c, nil
}

// Definitions returns the discovered tools, ready for registration.
func (c *Client) Definitions() []tools.Definition {
	return c.defs
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		fmt.Printf("INFO: Terminating MCP server '%s'\n", c.name)
		return c.cmd.Process.Kill()
	}
	return nil
}

func (c *Client) definition(t *mcpsdk.Tool) tools.Definition {
	toolName := t.Name
	return tools.Definition{
		Name:        toolName,
		Description: t.Description,
		Parameters:  schemaToParams(t.InputSchema),
		Run: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return c.call(ctx, toolName, args)
		},
	}
}

func (c *Client) call(ctx context.Context, toolName string, args map[string]interface{}) (string, error) {
	result, err := c.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      toolName,
		Arguments: args,
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to call tool '%s' on MCP server '%s'", toolName, c.name)
	}
	var sb strings.Builder
	for _, content := range result.Content {
		if text, ok := content.(*mcpsdk.TextContent); ok {
			sb.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "", errors.New("tool '%s' reported an error: %s", toolName, sb.String())
	}
	return sb.String(), nil
}

// schemaToParams flattens an MCP tool's JSON schema into registry parameters.
// Only the top-level properties are carried over; nested schemas degrade to
// the object type.
func schemaToParams(schema *jsonschema.Schema) map[string]tools.Param {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}
	params := make(map[string]tools.Param, len(schema.Properties))
	for name, prop := range schema.Properties {
		if prop == nil {
			params[name] = tools.Param{Type: tools.TypeAny, Required: required[name]}
			continue
		}
		p := tools.Param{
			Type:        schemaType(prop.Type),
			Description: prop.Description,
			Required:    required[name],
		}
		if p.Type == tools.TypeArray && prop.Items != nil {
			p.Items = &tools.Param{Type: schemaType(prop.Items.Type)}
		}
		params[name] = p
	}
	return params
}

func schemaType(t string) string {
	switch t {
	case tools.TypeString, tools.TypeNumber, tools.TypeInteger, tools.TypeBoolean, tools.TypeArray, tools.TypeObject:
		return t
	default:
		return tools.TypeAny
	}
}
