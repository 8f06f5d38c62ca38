package schema

// Built-in attribute trees for the four resource kinds. Tenant
// configuration documents may extend or override these via Merge.

func UserAttributes() []Attribute {
	return []Attribute{
		{Name: "userName", Type: TypeString, Required: true},
		{Name: "displayName", Type: TypeString},
		{Name: "active", Type: TypeBoolean},
		{Name: "externalId", Type: TypeString},
		{
			Name: "name",
			Type: TypeComplex,
			SubAttributes: []Attribute{
				{Name: "givenName", Type: TypeString},
				{Name: "familyName", Type: TypeString},
				{Name: "formatted", Type: TypeString},
			},
		},
		{
			Name:        "emails",
			Type:        TypeComplex,
			MultiValued: true,
			SubAttributes: []Attribute{
				{Name: "value", Type: TypeString, Required: true},
				{Name: "primary", Type: TypeBoolean},
				{Name: "type", Type: TypeString, CanonicalValues: []string{"work", "home", "other"}},
			},
		},
	}
}

func GroupAttributes() []Attribute {
	return []Attribute{
		{Name: "displayName", Type: TypeString, Required: true},
		{Name: "description", Type: TypeString},
	}
}

func EntitlementAttributes() []Attribute {
	return []Attribute{
		{Name: "displayName", Type: TypeString, Required: true},
		{Name: "type", Type: TypeString, Required: true},
		{Name: "description", Type: TypeString},
		{
			Name: "entitlementType",
			Type: TypeString,
			CanonicalValues: []string{
				"application_access", "role_based", "permission_based",
				"license_based", "department_based", "project_based",
			},
		},
	}
}

func RoleAttributes() []Attribute {
	return []Attribute{
		{Name: "displayName", Type: TypeString, Required: true},
		{Name: "description", Type: TypeString},
	}
}
