package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/realtime-tasks/modules/api"
	"github.com/example/realtime-tasks/modules/broadcast"
	"github.com/example/realtime-tasks/modules/task"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== Real-time Task Tracker ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	taskModule := task.NewModule()
	broadcastModule := broadcast.NewModule()
	apiModule := api.NewModule()

	// Inject broadcast hub into API module
	// (done manually because the hub is not exposed via ServiceContainer)
	apiModule.SetHub(broadcastModule.GetHub())

	// Register modules with the framework.
	// Order: independent modules first, then modules with dependencies
	// - task: Store + mutation services (ServiceProviderModule + EventEmitterModule)
	// - broadcast: Event consumer fanning change events out to WebSocket clients
	// - api: Driving adapter (Fiber HTTP/WebSocket server, depends on task)
	app.Register(taskModule)
	app.Register(broadcastModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Println("Real-time Task Flow:")
	log.Println("  - Mutations commit to SQLite, then emit TaskCreated/TaskUpdated/TaskDeleted")
	log.Println("  - broadcast module fans events out to every WebSocket subscriber")
	log.Println("  - client package reconciles optimistic local state with responses and events")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("  GET    /health         - Health check")
	log.Println("  POST   /tasks          - Create a task")
	log.Println("  GET    /tasks          - List tasks (optional ?status= filter)")
	log.Println("  GET    /tasks/:id      - Get a task")
	log.Println("  PATCH  /tasks/:id      - Update a task's status")
	log.Println("  DELETE /tasks/:id      - Delete a task")
	log.Println("")
	log.Printf("WebSocket Endpoint (ws://localhost:%s/ws):", port)
	log.Println("  Push events: taskCreated, taskUpdated, taskDeleted")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
