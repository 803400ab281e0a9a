// Package dtss implements a distributed time series service host.
//
// # Architecture
//
// The service is structured into several key packages:
//   - series: shared data structures and identifier scheme parsing
//   - repository: the data collection repository interface and its
//     implementations (netatmo, store, heartbeat)
//   - router: scheme-based query routing with fan-out/fan-in
//   - server: gRPC surface with validation and middleware
//   - host: listener lifecycle with startup verification
//   - collect: mirroring of remote series into the local store
//   - config: YAML + environment configuration loading
//
// Key Features
//
//   - Batched routing:
//     A read batch may mix identifiers from any registered scheme;
//     each repository is invoked once with its sub-batch and the
//     response is reassembled in request order.
//
//   - Partial failure tolerance:
//     A failing repository marks only its own positions; routing
//     errors fail the batch before any repository is called.
//
//   - Local storage:
//     Collected series are kept in TimescaleDB under store://
//     identifiers, so repeated queries never hit the remote API.
//
// Example Usage
//
//	client, err := server.Dial("localhost:20001")
//	resp, err := client.Read(ctx, &server.ReadRequest{
//	    TsIDs: []string{"netatmo://home/Temperature", "store://netatmo/home/Temperature"},
//	    Start: start.Unix(),
//	    End:   end.Unix(),
//	})
//
// For more information about specific packages, see their respective
// documentation.
package dtss
