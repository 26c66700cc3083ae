package integration

// Canonical credentials used across the flow tests
const (
	testEmail    = "alice@example.com"
	testPassword = "Secret123!"

	newPassword = "Changed456!"
)

func registerBody(email string) map[string]any {
	return map[string]any{
		"email":          email,
		"password":       testPassword,
		"first_name":     "Alice",
		"last_name":      "Smith",
		"accepted_terms": true,
	}
}

func loginBody(email, password string) map[string]any {
	return map[string]any{
		"email":    email,
		"password": password,
	}
}
