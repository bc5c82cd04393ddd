package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/PabloGalante/soldiom/internal/domain"
)

type roleFile struct {
	Roles []roleEntry `yaml:"roles"`
}

type roleEntry struct {
	ID                string `yaml:"id"`
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	SystemInstruction string `yaml:"system_instruction"`
}

// LoadRoles returns the built-in roles, overridden and extended by the
// YAML file at path. An empty path returns the built-in roles.
//
//	roles:
//	  - id: lawyer
//	    name: Legal Researcher
//	    system_instruction: You research case law...
func LoadRoles(path string) (*domain.RoleCatalog, error) {
	catalog := domain.NewRoleCatalog(domain.DefaultRoles()...)
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading roles file: %w", err)
	}

	roles, err := ParseRoles(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	for _, r := range roles {
		// Entries may override only some fields of a built-in role.
		if base, err := catalog.Get(r.ID); err == nil {
			if r.Name == "" {
				r.Name = base.Name
			}
			if r.Description == "" {
				r.Description = base.Description
			}
			if r.SystemInstruction == "" {
				r.SystemInstruction = base.SystemInstruction
			}
		} else if r.SystemInstruction == "" {
			return nil, fmt.Errorf("%s: role %s needs a system_instruction", path, r.ID)
		}
		catalog.Put(r)
	}
	return catalog, nil
}

// ParseRoles decodes a roles document.
func ParseRoles(data []byte) ([]domain.RoleConfig, error) {
	var f roleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing roles: %w", err)
	}

	out := make([]domain.RoleConfig, 0, len(f.Roles))
	for i, e := range f.Roles {
		if strings.TrimSpace(e.ID) == "" {
			return nil, fmt.Errorf("role #%d: id is required", i+1)
		}
		out = append(out, domain.RoleConfig{
			ID:                domain.ParseRoleType(e.ID),
			Name:              strings.TrimSpace(e.Name),
			Description:       strings.TrimSpace(e.Description),
			SystemInstruction: strings.TrimSpace(e.SystemInstruction),
		})
	}
	return out, nil
}
