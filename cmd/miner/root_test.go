package main

import "testing"

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCommand()

	want := map[string]bool{
		"run":    false,
		"sync":   false,
		"show":   false,
		"worker": false,
		"config": false,
	}
	for _, cmd := range root.Commands() {
		if _, ok := want[cmd.Name()]; ok {
			want[cmd.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestWorkerCommandIsHidden(t *testing.T) {
	root := newRootCommand()
	for _, cmd := range root.Commands() {
		if cmd.Name() == "worker" {
			if !cmd.Hidden {
				t.Error("worker command should be hidden")
			}
			return
		}
	}
	t.Fatal("worker command not found")
}

func TestWorkerInvocationCarriesConfigPath(t *testing.T) {
	ctx := newCommandContext(nil)
	args := workerInvocation(ctx)
	if len(args) != 1 || args[0] != "worker" {
		t.Fatalf("unexpected args without config: %v", args)
	}

	ctx.configPath = "/tmp/config.toml"
	args = workerInvocation(ctx)
	if len(args) != 3 || args[1] != "--config" || args[2] != "/tmp/config.toml" {
		t.Fatalf("unexpected args with config: %v", args)
	}
}
