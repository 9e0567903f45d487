package seed

import (
	"strings"
	"testing"

	"github.com/example/cohort-scheduler/internal/resources"
)

func TestParsePool(t *testing.T) {
	t.Parallel()

	t.Run("parses a well formed pool file", func(t *testing.T) {
		t.Parallel()
		data := []byte(`
resources:
  - id: link-1
    name: Zoom Room A
    platform: zoom
    credentials: zoom://host-key/1
  - id: link-2
    name: Meet Room B
    platform: meet
    maintenance: true
`)
		pool, err := ParsePool(data)
		if err != nil {
			t.Fatalf("ParsePool: %v", err)
		}
		if len(pool) != 2 {
			t.Fatalf("expected 2 resources, got %d", len(pool))
		}
		if pool[0].ID != "link-1" || pool[0].Status != resources.StatusAvailable {
			t.Fatalf("unexpected first resource: %+v", pool[0])
		}
		if pool[1].Status != resources.StatusMaintenance {
			t.Fatalf("expected maintenance status, got %s", pool[1].Status)
		}
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		t.Parallel()
		data := []byte(`
resources:
  - id: link-1
    nmae: typo
`)
		if _, err := ParsePool(data); err == nil {
			t.Fatal("expected unknown field error")
		}
	})

	t.Run("rejects duplicate ids", func(t *testing.T) {
		t.Parallel()
		data := []byte(`
resources:
  - id: link-1
  - id: link-1
`)
		_, err := ParsePool(data)
		if err == nil || !strings.Contains(err.Error(), "duplicate") {
			t.Fatalf("expected duplicate id error, got %v", err)
		}
	})

	t.Run("rejects missing ids", func(t *testing.T) {
		t.Parallel()
		data := []byte(`
resources:
  - name: nameless
`)
		if _, err := ParsePool(data); err == nil {
			t.Fatal("expected missing id error")
		}
	})
}
