package auth

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "test-secret-key-for-jwt-signing"

func TestIssueAndParseToken(t *testing.T) {
	token, err := IssueToken("maria", RoleHousekeeper, []string{"pousada"}, testSecret, 15)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "maria" {
		t.Errorf("Subject = %q, want maria", claims.Subject)
	}
	if claims.Role != RoleHousekeeper {
		t.Errorf("Role = %q, want %q", claims.Role, RoleHousekeeper)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
	if !claims.CanAccess("pousada") || claims.CanAccess("other") {
		t.Errorf("CanAccess with Properties=%v is wrong", claims.Properties)
	}
}

func TestCanAccess_AllProperties(t *testing.T) {
	c := &Claims{Role: RoleManager}
	if !c.CanAccess("anything") {
		t.Error("empty property list should grant every property")
	}
}

func TestIssueToken_Rejects(t *testing.T) {
	if _, err := IssueToken("", RoleManager, nil, testSecret, 15); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("empty subject: err = %v", err)
	}
	if _, err := IssueToken("ana", Role("owner"), nil, testSecret, 15); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("unknown role: err = %v", err)
	}
}

func TestParseToken_Invalid(t *testing.T) {
	token, err := IssueToken("ana", RoleFrontDesk, nil, "correct-secret", 15)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}

	for name, tc := range map[string]struct{ token, secret string }{
		"wrong secret": {token, "wrong-secret"},
		"garbage":      {"not-a-valid-jwt", testSecret},
		"empty":        {"", testSecret},
		"two segments": {"abc.def", testSecret},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseToken(tc.token, tc.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestIssueToken_DefaultTTL(t *testing.T) {
	token, err := IssueToken("ana", RoleFrontDesk, nil, testSecret, 0)
	if err != nil {
		t.Fatalf("IssueToken() error = %v", err)
	}
	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	expectedExpiry := time.Now().Add(15 * time.Minute)
	diff := claims.ExpiresAt.Time.Sub(expectedExpiry)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("default TTL should be ~15 minutes, got expiry diff of %v", diff)
	}
}
