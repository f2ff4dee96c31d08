// Package command holds the named, invocable buttons a host UI shows for a
// list entry.
package command

import "sync"

// Command is a single button. Title is an i18n key, Icon a host-mapped glyph name.
type Command struct {
	Name     string
	Icon     string
	Title    string
	Invoke   func()
	Active   bool
	Disabled bool
}

// Set is an ordered collection of commands keyed by name. A Set never holds
// two commands with the same name.
type Set struct {
	mu       sync.RWMutex
	commands []*Command
}

// NewSet creates a set holding cmds, skipping duplicate names.
func NewSet(cmds ...*Command) *Set {
	s := &Set{}
	for _, c := range cmds {
		s.Insert(c)
	}
	return s
}

func (s *Set) index(name string) int {
	for i, c := range s.commands {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Insert appends cmd unless a command with the same name is present.
// It reports whether cmd was added.
func (s *Set) Insert(cmd *Command) bool {
	if cmd == nil || cmd.Name == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(cmd.Name) >= 0 {
		return false
	}
	s.commands = append(s.commands, cmd)
	return true
}

// Remove deletes the command called name and reports whether one was present.
func (s *Set) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(name)
	if i < 0 {
		return false
	}
	s.commands = append(s.commands[:i], s.commands[i+1:]...)
	return true
}

// Get returns the command called name.
func (s *Set) Get(name string) (*Command, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.index(name)
	if i < 0 {
		return nil, false
	}
	return s.commands[i], true
}

// Has reports whether a command called name is present.
func (s *Set) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Invoke runs the named command. Disabled commands are skipped.
func (s *Set) Invoke(name string) bool {
	c, ok := s.Get(name)
	if !ok || c.Disabled || c.Invoke == nil {
		return false
	}
	c.Invoke()
	return true
}

// Names returns the command names in display order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.commands))
	for i, c := range s.commands {
		names[i] = c.Name
	}
	return names
}

// Commands returns the commands in display order.
func (s *Set) Commands() []*Command {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Command, len(s.commands))
	copy(out, s.commands)
	return out
}

// Len returns the number of commands.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.commands)
}
