package main

import (
	"strings"
	"testing"
)

func TestSetTierCmd_RejectsUnknownTier(t *testing.T) {
	cmd := newSetTierCmd()
	cmd.SetArgs([]string{"--profile-id", "p1", "--tier", "gold", "--reason", "support"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown tier") {
		t.Fatalf("expected unknown tier error, got %v", err)
	}
}

func TestSetTierCmd_RequiresFlags(t *testing.T) {
	cmd := newSetTierCmd()
	cmd.SetArgs([]string{"--tier", "premium"})
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected missing flag error")
	}
}
