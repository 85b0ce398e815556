// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"testing"

	"github.com/tradewatch/tradewatch/internal/issue"
)

func newMockDocker(t *testing.T, recorder *MockCommandRecorder) *DockerEngine {
	t.Helper()
	return &DockerEngine{
		BaseCLIEngine: NewBaseCLIEngine("/usr/bin/docker", WithName("docker"), recorder.Option(t)),
	}
}

// TestDockerEngine_Build_Arguments verifies Build() constructs correct arguments.
func TestDockerEngine_Build_Arguments(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	engine := newMockDocker(t, recorder)
	ctx := context.Background()

	t.Run("basic build", func(t *testing.T) {
		recorder.Reset()
		err := engine.Build(ctx, BuildOptions{ContextDir: "/tmp/build", Tag: "steam-trade-accepter:latest"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		recorder.AssertInvocationCount(t, 1)
		recorder.AssertCommandName(t, "/usr/bin/docker")
		recorder.AssertFirstArg(t, "build")
		if !recorder.HasArgPair("-t", "steam-trade-accepter:latest") {
			t.Errorf("expected -t steam-trade-accepter:latest, got %v", recorder.LastArgs())
		}
		if args := recorder.LastArgs(); args[len(args)-1] != "/tmp/build" {
			t.Errorf("expected context dir last, got %v", args)
		}
	})

	t.Run("with dockerfile", func(t *testing.T) {
		recorder.Reset()
		err := engine.Build(ctx, BuildOptions{ContextDir: "/tmp/build", Dockerfile: "Dockerfile.custom", Tag: "test:v1"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Dockerfile path should be joined with context dir
		if !recorder.HasArgPair("-f", "/tmp/build/Dockerfile.custom") {
			t.Errorf("expected -f /tmp/build/Dockerfile.custom, got %v", recorder.LastArgs())
		}
	})

	t.Run("with build args and no-cache", func(t *testing.T) {
		recorder.Reset()
		err := engine.Build(ctx, BuildOptions{
			ContextDir: ".",
			Tag:        "test:v1",
			NoCache:    true,
			BuildArgs:  map[string]string{"VERSION": "1.2.3", "APP": "tradewatch"},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		recorder.AssertArgsContain(t, "--no-cache")
		recorder.AssertArgsContain(t, "--build-arg APP=tradewatch --build-arg VERSION=1.2.3")
	})

	t.Run("empty context defaults to cwd", func(t *testing.T) {
		recorder.Reset()
		if err := engine.Build(ctx, BuildOptions{Tag: "x"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if args := recorder.LastArgs(); args[len(args)-1] != "." {
			t.Errorf("expected '.' as build context, got %v", args)
		}
	})
}

func TestDockerEngine_Build_Failure(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.FailOnCommand = "build"
	engine := newMockDocker(t, recorder)

	err := engine.Build(context.Background(), BuildOptions{ContextDir: "/src", Tag: "x"})
	if err == nil {
		t.Fatal("expected build error")
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		t.Fatalf("expected ActionableError, got %T", err)
	}
	if ae.Operation != "build container image" || ae.Resource != "/src/Dockerfile" {
		t.Errorf("unexpected error context: %q %q", ae.Operation, ae.Resource)
	}
}

// TestDockerEngine_Run_Detached verifies the detached run used by deploy.
func TestDockerEngine_Run_Detached(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Stdout = "4f2a9c1b7d3e\n"
	engine := newMockDocker(t, recorder)

	result, err := engine.Run(context.Background(), RunOptions{
		Name:          "steam-trade-accepter",
		Image:         "steam-trade-accepter:latest",
		Detach:        true,
		RestartPolicy: RestartUnlessStopped,
		Env: map[string]string{
			"TZ":             "Europe/Berlin",
			"EMAIL_USERNAME": "me@example.com",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ContainerID != "4f2a9c1b7d3e" {
		t.Errorf("ContainerID = %q, want %q", result.ContainerID, "4f2a9c1b7d3e")
	}

	recorder.AssertFirstArg(t, "run")
	if !recorder.HasArg("-d") {
		t.Error("expected -d flag")
	}
	if !recorder.HasArgPair("--name", "steam-trade-accepter") {
		t.Error("expected --name steam-trade-accepter")
	}
	if !recorder.HasArgPair("--restart", "unless-stopped") {
		t.Error("expected --restart unless-stopped")
	}
	if !recorder.HasArgPair("-e", "TZ=Europe/Berlin") {
		t.Error("expected -e TZ=Europe/Berlin")
	}
	// Sorted env keeps the command line stable.
	recorder.AssertArgsContain(t, "-e EMAIL_USERNAME=me@example.com -e TZ=Europe/Berlin steam-trade-accepter:latest")
}

func TestDockerEngine_Run_Failure(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.FailOnCommand = "run"
	recorder.FailExitCode = 125
	engine := newMockDocker(t, recorder)

	result, err := engine.Run(context.Background(), RunOptions{Image: "img", Name: "svc", Detach: true})
	if err == nil {
		t.Fatal("expected run error")
	}
	if result == nil || result.ExitCode != 125 {
		t.Errorf("expected exit code 125, got %+v", result)
	}
}

func TestDockerEngine_Exists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		fail       bool
		failStderr string
		want       bool
		wantErr    bool
	}{
		{name: "present", want: true},
		{name: "missing", fail: true, failStderr: "Error: No such container: steam-trade-accepter", want: false},
		{name: "daemon down", fail: true, failStderr: "Cannot connect to the Docker daemon", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := NewMockCommandRecorder()
			if tt.fail {
				recorder.FailOnCommand = "container"
				recorder.FailStderr = tt.failStderr
			}
			engine := newMockDocker(t, recorder)

			got, err := engine.Exists(context.Background(), "steam-trade-accepter")
			if (err != nil) != tt.wantErr {
				t.Fatalf("Exists() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Exists() = %v, want %v", got, tt.want)
			}
			recorder.AssertArgsContain(t, "container inspect")
		})
	}
}

func TestDockerEngine_StopAndRemove(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		recorder := NewMockCommandRecorder()
		engine := newMockDocker(t, recorder)

		if err := engine.Stop(context.Background(), "svc"); err != nil {
			t.Fatalf("Stop() error = %v", err)
		}
		recorder.AssertFirstArg(t, "stop")

		if err := engine.Remove(context.Background(), "svc", false); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}
		recorder.AssertFirstArg(t, "rm")
		recorder.AssertArgsNotContain(t, "-f")
		recorder.AssertInvocationCount(t, 2)
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		recorder := NewMockCommandRecorder()
		recorder.FailOnCommand = "stop"
		recorder.FailStderr = "Error response from daemon: No such container: svc"
		engine := newMockDocker(t, recorder)

		err := engine.Stop(context.Background(), "svc")
		if !errors.Is(err, ErrContainerNotFound) {
			t.Errorf("Stop() error = %v, want ErrContainerNotFound", err)
		}
	})

	t.Run("other failure keeps stderr", func(t *testing.T) {
		t.Parallel()

		recorder := NewMockCommandRecorder()
		recorder.FailOnCommand = "rm"
		recorder.FailStderr = "permission denied"
		engine := newMockDocker(t, recorder)

		err := engine.Remove(context.Background(), "svc", true)
		if err == nil || errors.Is(err, ErrContainerNotFound) {
			t.Fatalf("Remove() error = %v, want generic failure", err)
		}
		recorder.AssertArgsContain(t, "rm -f svc")
	})
}

func TestDockerEngine_Version(t *testing.T) {
	t.Parallel()

	recorder := NewMockCommandRecorder()
	recorder.Stdout = "27.3.1\n"
	engine := newMockDocker(t, recorder)

	version, err := engine.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != "27.3.1" {
		t.Errorf("Version() = %q, want %q", version, "27.3.1")
	}
	recorder.AssertArgsContain(t, "{{.Server.Version}}")
}

func TestDockerEngine_ImageExists(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		fail       bool
		failStderr string
		want       bool
		wantErr    bool
	}{
		{name: "present", want: true},
		{name: "missing", fail: true, failStderr: "Error response from daemon: No such image: steam-trade-accepter:latest", want: false},
		{name: "daemon down", fail: true, failStderr: "Cannot connect to the Docker daemon at unix:///var/run/docker.sock", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			recorder := NewMockCommandRecorder()
			if tt.fail {
				recorder.FailOnCommand = "image"
				recorder.FailStderr = tt.failStderr
			}
			engine := newMockDocker(t, recorder)

			got, err := engine.ImageExists(context.Background(), "steam-trade-accepter:latest")
			if (err != nil) != tt.wantErr {
				t.Fatalf("ImageExists() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ImageExists() = %v, want %v", got, tt.want)
			}
			recorder.AssertArgsContain(t, "image inspect --format {{.Id}} steam-trade-accepter:latest")
		})
	}
}
