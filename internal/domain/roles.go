package domain

import "strings"

// RoleType identifies an assistant persona.
type RoleType string

const (
	RoleDoctor        RoleType = "DOCTOR"
	RoleEngineer      RoleType = "ENGINEER"
	RoleCybersecurity RoleType = "CYBERSECURITY"
	RoleAIExpert      RoleType = "AI_EXPERT"
	RoleGeneral       RoleType = "GENERAL"
)

// RoleConfig is the persona a session talks to.
type RoleConfig struct {
	ID                RoleType
	Name              string
	Description       string
	SystemInstruction string
}

// ParseRoleType normalizes user input ("ai-expert", "doctor") to a RoleType.
// Empty input maps to RoleGeneral.
func ParseRoleType(s string) RoleType {
	s = strings.TrimSpace(s)
	if s == "" {
		return RoleGeneral
	}
	s = strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	return RoleType(s)
}

// RoleCatalog resolves roles by ID, keeping declaration order for listings.
type RoleCatalog struct {
	order []RoleType
	roles map[RoleType]RoleConfig
}

func NewRoleCatalog(roles ...RoleConfig) *RoleCatalog {
	c := &RoleCatalog{roles: make(map[RoleType]RoleConfig, len(roles))}
	for _, r := range roles {
		c.Put(r)
	}
	return c
}

// Put adds a role or replaces the one with the same ID in place.
func (c *RoleCatalog) Put(r RoleConfig) {
	if _, ok := c.roles[r.ID]; !ok {
		c.order = append(c.order, r.ID)
	}
	c.roles[r.ID] = r
}

func (c *RoleCatalog) Get(id RoleType) (RoleConfig, error) {
	r, ok := c.roles[id]
	if !ok {
		return RoleConfig{}, ErrUnknownRole
	}
	return r, nil
}

func (c *RoleCatalog) List() []RoleConfig {
	out := make([]RoleConfig, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.roles[id])
	}
	return out
}

// DefaultRoles returns the built-in personas.
func DefaultRoles() []RoleConfig {
	return []RoleConfig{
		{
			ID:          RoleGeneral,
			Name:        "General Assistant",
			Description: "Everyday questions, writing and research",
			SystemInstruction: "You are Soldiom, a helpful and precise general assistant. " +
				"Answer clearly, use markdown headings, lists and code blocks when they help, " +
				"and rely on web search results for facts that may have changed.",
		},
		{
			ID:          RoleDoctor,
			Name:        "Medical Advisor",
			Description: "Health information grounded in current guidance",
			SystemInstruction: "You are a careful medical information assistant. " +
				"Explain conditions, treatments and evidence in plain language, cite reputable sources, " +
				"and always remind the user that you do not replace a licensed clinician. " +
				"For emergencies, tell the user to contact local emergency services.",
		},
		{
			ID:          RoleEngineer,
			Name:        "Software Engineer",
			Description: "Code, architecture and debugging",
			SystemInstruction: "You are a senior software engineer. " +
				"Give working code in fenced code blocks with the language tag, explain trade-offs briefly, " +
				"and prefer simple, maintainable solutions.",
		},
		{
			ID:          RoleCybersecurity,
			Name:        "Security Analyst",
			Description: "Defensive security and threat analysis",
			SystemInstruction: "You are a defensive cybersecurity analyst. " +
				"Help with hardening, detection, incident response and secure design. " +
				"Reference current advisories and CVEs when relevant and refuse to assist with attacks on systems the user does not own.",
		},
		{
			ID:          RoleAIExpert,
			Name:        "AI Researcher",
			Description: "Machine learning models, papers and tooling",
			SystemInstruction: "You are an AI and machine learning expert. " +
				"Explain models, training and evaluation precisely, link to papers and documentation, " +
				"and distinguish established results from speculation.",
		},
	}
}
