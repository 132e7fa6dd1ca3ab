package zeroconf_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/micro-nova/ampvol-go/internal/models"
	"github.com/micro-nova/ampvol-go/internal/zeroconf"
)

func TestTXT(t *testing.T) {
	got := zeroconf.TXT("1.2.3", models.ModePotentiometer)
	want := []string{"version=1.2.3", "model=LM49270", "mode=potentiometer", "path=/api"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TXT() = %v, want %v", got, want)
	}
}

func TestStart_InvalidPort(t *testing.T) {
	svc := zeroconf.New("ampvol-test", 0, "test", models.ModeButton)
	if err := svc.Start(context.Background()); err == nil {
		t.Error("Start with port 0 should fail")
	}
}

// TestStart_Cancel verifies that Start returns once ctx is cancelled.
func TestStart_Cancel(t *testing.T) {
	svc := zeroconf.New("ampvol-test", 18080, "test", models.ModeButton)

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- svc.Start(ctx)
	}()

	select {
	case err := <-done:
		// mDNS may be unavailable in the test environment; returning is what matters.
		if err != nil {
			t.Logf("Start returned error (may be expected in CI): %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Start did not return within 3 seconds after context cancellation")
	}
}
