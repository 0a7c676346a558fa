package cmd

import (
	"testing"
)

// TestRootCommand_Subcommands tests all subcommands are registered
func TestRootCommand_Subcommands(t *testing.T) {
	expected := map[string]bool{
		"run":    false,
		"scan":   false,
		"prices": false,
		"cancel": false,
	}

	for _, sub := range rootCmd.Commands() {
		if _, ok := expected[sub.Name()]; ok {
			expected[sub.Name()] = true
		}
	}

	for name, found := range expected {
		if !found {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

// TestScanCommand_Flags tests command flags are defined
func TestScanCommand_Flags(t *testing.T) {
	timeoutFlag := scanCmd.Flags().Lookup("timeout")
	if timeoutFlag == nil {
		t.Fatal("timeout flag not defined")
	}

	if timeoutFlag.DefValue != "30s" {
		t.Errorf("expected timeout default '30s', got '%s'", timeoutFlag.DefValue)
	}
}

// TestCancelCommand_Structure tests command is properly configured
func TestCancelCommand_Structure(t *testing.T) {
	if cancelCmd.RunE == nil {
		t.Error("RunE function is nil")
	}

	if err := cancelCmd.Args(cancelCmd, []string{}); err == nil {
		t.Error("expected an error for missing tx-hash argument")
	}
}
