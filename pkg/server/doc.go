// Package server runs the render-job service: an acceptor that reads one
// request per loopback connection, a bounded queue, and a fixed pool of
// workers that hand each job to a render backend.
//
// # Lifecycle
//
//	srv := server.New(server.Config{Addr: "127.0.0.1:14446"}, backend, logger)
//	if err := srv.Run(ctx); err != nil {
//	    // bind or accept failure
//	}
//
// Run returns after a graceful shutdown. Shutdown is triggered by a "quit"
// job taken from the queue, by cancellation of ctx, or by a fatal accept
// error. In every case the listening socket is closed first, then idle
// workers stop, and Run waits for renders already in progress.
//
// Jobs still queued when shutdown begins are dropped. Control jobs travel the
// same queue as render jobs, so a "quit" only takes effect after everything
// published before it has been taken.
package server
