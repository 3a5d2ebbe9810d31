package cmd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ErrInvalidCommand is returned by Registry.Add for unusable definitions.
var ErrInvalidCommand = errors.New("cmd: invalid command")

// Definition describes a slash command.
type Definition struct {
	// Name is the unique command name.
	Name string
	// Schema is sent to Discord verbatim when commands are registered.
	Schema *discordgo.ApplicationCommand
	// RequiredRoles lists role IDs or names of which the invoker needs any one.
	// A nil list means the command is unrestricted; an empty, non-nil list
	// means nobody may run it.
	RequiredRoles []string
	// Defer acknowledges the interaction before the command runs, so the reply
	// is delivered as an edit.
	Defer bool
}

// Restricted reports whether the definition declares a required-roles list.
func (d Definition) Restricted() bool { return d.RequiredRoles != nil }

// Command is a definition bound to its handler.
type Command struct {
	Definition Definition
	Run        Handler
}

// Registry stores commands by name in registration order. It does not
// perform dispatch.
type Registry struct {
	mu       sync.RWMutex
	index    map[string]int
	commands []Command
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Add registers a command, replacing any command with the same name. A
// replaced command keeps its original position.
func (r *Registry) Add(def Definition, run Handler) error {
	if def.Name == "" {
		return fmt.Errorf("add command: %w: empty name", ErrInvalidCommand)
	}
	if run == nil {
		return fmt.Errorf("add command %s: %w: nil handler", def.Name, ErrInvalidCommand)
	}

	c := Command{Definition: cloneDefinition(def), Run: run}

	r.mu.Lock()
	defer r.mu.Unlock()
	if pos, ok := r.index[def.Name]; ok {
		r.commands[pos] = c
		return nil
	}
	r.index[def.Name] = len(r.commands)
	r.commands = append(r.commands, c)
	return nil
}

// Get returns the command with the given name.
func (r *Registry) Get(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pos, ok := r.index[name]
	if !ok {
		return Command{}, false
	}
	return r.commands[pos], true
}

// All returns every registered command in registration order.
func (r *Registry) All() []Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Command(nil), r.commands...)
}

// Len returns the number of registered commands.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Payloads returns the schemas of all commands in registration order, ready
// for a bulk overwrite.
func (r *Registry) Payloads() []*discordgo.ApplicationCommand {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*discordgo.ApplicationCommand, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c.Definition.Schema)
	}
	return out
}

// cloneDefinition copies the caller-owned parts of a definition so later
// mutation does not leak into the registry. The nil/empty distinction of
// RequiredRoles is preserved.
func cloneDefinition(def Definition) Definition {
	out := def
	if def.RequiredRoles != nil {
		out.RequiredRoles = make([]string, len(def.RequiredRoles))
		copy(out.RequiredRoles, def.RequiredRoles)
	}

	schema := &discordgo.ApplicationCommand{}
	if def.Schema != nil {
		*schema = *def.Schema
	}
	schema.Name = def.Name
	if schema.Type == 0 {
		schema.Type = discordgo.ChatApplicationCommand
	}
	out.Schema = schema
	return out
}
