package featureflags

import "testing"

func TestEnabledDefault(t *testing.T) {
	// Unset: the default decides. Notifications ride this to be on out of
	// the box.
	if EnabledDefault("NOTIFICATIONS", true) != true {
		t.Fatalf("unset flag should fall back to default true")
	}
	if EnabledDefault("NOTIFICATIONS", false) != false {
		t.Fatalf("unset flag should fall back to default false")
	}

	t.Setenv("FLAG_NOTIFICATIONS", "false")
	if EnabledDefault("NOTIFICATIONS", true) {
		t.Fatalf("explicit false should override a true default")
	}

	t.Setenv("FLAG_NOTIFICATIONS", "on")
	if !EnabledDefault("NOTIFICATIONS", false) {
		t.Fatalf("explicit on should override a false default")
	}
}

func TestEnabled(t *testing.T) {
	if Enabled("STRICT_LOGIN_LIMITS") {
		t.Fatalf("unset flag should read as disabled")
	}
	t.Setenv("FLAG_STRICT_LOGIN_LIMITS", "1")
	if !Enabled("strict_login_limits") {
		t.Fatalf("flag name should be case-insensitive")
	}
}
