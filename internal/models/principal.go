package models

import "time"

// PersonIdentity distinguishes students from teaching staff.
type PersonIdentity string

const (
	PersonIdentityStudent PersonIdentity = "STUDENT"
	PersonIdentityTeacher PersonIdentity = "TEACHER"
)

// Person is a natural person account.
type Person struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"user_id"`
	Name      string         `db:"name" json:"name"`
	Identity  PersonIdentity `db:"identity" json:"identity"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Organization is a club account; TypeName identifies course-offering organizations.
type Organization struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	TypeName  string    `db:"type_name" json:"type_name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// PrincipalKind tells which concrete principal is set.
type PrincipalKind string

const (
	PrincipalPerson       PrincipalKind = "Person"
	PrincipalOrganization PrincipalKind = "Organization"
)

// Principal is the resolved identity a request acts on behalf of.
// Representative is set when a person was elevated to Organization.
type Principal struct {
	Kind           PrincipalKind `json:"kind"`
	Person         *Person       `json:"person,omitempty"`
	Organization   *Organization `json:"organization,omitempty"`
	Elevated       bool          `json:"elevated"`
	Representative *Person       `json:"representative,omitempty"`
}

// PersonPrincipal wraps a person.
func PersonPrincipal(p *Person) Principal {
	return Principal{Kind: PrincipalPerson, Person: p}
}

// OrganizationPrincipal wraps an organization.
func OrganizationPrincipal(o *Organization) Principal {
	return Principal{Kind: PrincipalOrganization, Organization: o}
}

// IsOrganization reports whether the principal acts as an organization.
func (p Principal) IsOrganization() bool {
	return p.Kind == PrincipalOrganization && p.Organization != nil
}

// IsPerson reports whether the principal acts as a person.
func (p Principal) IsPerson() bool {
	return p.Kind == PrincipalPerson && p.Person != nil
}

// OrganizationID returns the organization id or an empty string.
func (p Principal) OrganizationID() string {
	if !p.IsOrganization() {
		return ""
	}
	return p.Organization.ID
}

// PersonID returns the person id or an empty string.
func (p Principal) PersonID() string {
	if !p.IsPerson() {
		return ""
	}
	return p.Person.ID
}
