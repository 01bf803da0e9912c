// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

/*
Package supervisor runs the long-lived parts of the API server under a
suture v4 supervisor tree.

The tree has three layers, each restarting its services independently:

	analytodon
	├── events-layer
	│   └── event router (account.connected, mail topics)
	├── jobs-layer
	│   └── SchedulerService (stats collector schedule)
	└── api-layer
	    └── HTTPServerService

A failing event handler or a scheduler that cannot reach the database
never takes the HTTP server down with it. Supervisor events are logged
through sutureslog on the slog bridge of the logging package.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddEventService(router)
	tree.AddJobService(services.NewSchedulerService(scheduler))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = tree.Serve(ctx)
*/
package supervisor
