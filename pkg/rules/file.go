package rules

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/membersync/pkg/rule"
)

// File is the YAML form of a set of rules for one sync method.
//
//	method: role
//	rules:
//	  - type_id: 5
//	    current: [1, 2]
//	    expired: [3, 4]
//	    current_role: member
//	    expired_role: expired_member
type File struct {
	Method rule.Method `yaml:"method" json:"method"`
	Rules  []FileRule  `yaml:"rules" json:"rules"`
}

// FileRule is one entry of a rule file.
type FileRule struct {
	TypeID      int    `yaml:"type_id" json:"type_id"`
	Current     []int  `yaml:"current,flow" json:"current"`
	Expired     []int  `yaml:"expired,flow" json:"expired"`
	CurrentRole string `yaml:"current_role,omitempty" json:"current_role,omitempty"`
	ExpiredRole string `yaml:"expired_role,omitempty" json:"expired_role,omitempty"`
}

// Rule converts the entry to a rule for method.
func (e FileRule) Rule(method rule.Method) rule.Rule {
	if method == rule.MethodCapability {
		return rule.NewCapabilityRule(e.TypeID, e.Current, e.Expired)
	}
	return rule.NewRoleRule(e.TypeID, e.Current, e.Expired, e.CurrentRole, e.ExpiredRole)
}

// FileFor builds the file form of rules stored for method.
func FileFor(method rule.Method, rs []rule.Rule) *File {
	f := &File{Method: method, Rules: make([]FileRule, 0, len(rs))}
	for _, r := range rs {
		entry := FileRule{TypeID: r.MembershipTypeID, Current: r.CurrentStatusIDs, Expired: r.ExpiryStatusIDs}
		if roles, ok := r.Roles(); ok {
			entry.CurrentRole = roles.CurrentRole
			entry.ExpiredRole = roles.ExpiredRole
		}
		f.Rules = append(f.Rules, entry)
	}
	return f
}

// Write encodes f as YAML.
func (f *File) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// ParseFile decodes a rule file. Unknown fields are rejected.
func ParseFile(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("parse rule file: %w", err)
	}
	return &f, nil
}

// LoadOptions controls LoadFile.
type LoadOptions struct {
	// Replace deletes stored rules of the file's method that the file
	// does not mention.
	Replace bool
}

// LoadResult reports what LoadFile did. Invalid holds the validation error
// of every entry that was skipped, keyed by membership type.
type LoadResult struct {
	Method  rule.Method
	Saved   []int
	Deleted []int
	Invalid map[int]error
}

// LoadFile reads the rule file at path and saves every valid entry through
// the manager.
func (m *Manager) LoadFile(ctx context.Context, path string, opts LoadOptions) (*LoadResult, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	f, err := ParseFile(fh)
	if err != nil {
		return nil, err
	}
	return m.Load(ctx, f, opts)
}

// Load saves the entries of f.
func (m *Manager) Load(ctx context.Context, f *File, opts LoadOptions) (*LoadResult, error) {
	res := &LoadResult{Method: f.Method, Invalid: make(map[int]error)}
	seen := make(map[int]bool, len(f.Rules))

	for _, entry := range f.Rules {
		seen[entry.TypeID] = true
		err := m.Save(ctx, entry.Rule(f.Method))

		var invalid rule.ValidationErrors
		switch {
		case errors.As(err, &invalid):
			res.Invalid[entry.TypeID] = invalid
		case err != nil:
			return res, fmt.Errorf("save rule for membership type %d: %w", entry.TypeID, err)
		default:
			res.Saved = append(res.Saved, entry.TypeID)
		}
	}

	if !opts.Replace {
		return res, nil
	}
	existing, err := m.List(ctx, f.Method)
	if err != nil {
		return res, err
	}
	for _, r := range existing {
		if seen[r.MembershipTypeID] {
			continue
		}
		if err := m.Delete(ctx, r.MembershipTypeID, f.Method); err != nil {
			return res, err
		}
		res.Deleted = append(res.Deleted, r.MembershipTypeID)
	}
	return res, nil
}
