// Package protocol defines the wire-level types of the Model Context
// Protocol: the three JSON-RPC 2.0 envelope shapes, the method namespace,
// the capability structures negotiated during the handshake, and the typed
// parameter/result pairs for every protocol operation.
//
// # Envelope Shapes
//
// Every wire message is one of three shapes, distinguished structurally:
//
//   - Request: has an id and a method; expects a response
//   - Response: has an id and a result or error, but no method
//   - Notification: has a method but no id; fire-and-forget
//
// Classify and the IsRequest/IsResponse/IsNotification helpers implement
// this shape test on raw payloads.
//
// # Method Namespace
//
// Client-to-server requests: initialize, ping, tools/list, tools/call,
// resources/list, resources/templates/list, resources/read,
// resources/subscribe, resources/unsubscribe, prompts/list, prompts/get,
// logging/setLevel. Server-to-client requests: sampling/createMessage,
// roots/list. Notifications flow in either direction under the
// notifications/ prefix.
//
// # Capabilities
//
// Capability structures use pointer fields so that an absent feature area
// is omitted from the wire entirely; presence of a key is the capability
// signal, negotiated once during initialize and immutable for the session.
//
// # Example Messages
//
// Initialize request:
//
//	{
//	    "jsonrpc": "2.0",
//	    "id": 1,
//	    "method": "initialize",
//	    "params": {
//	        "protocolVersion": "2025-03-26",
//	        "capabilities": {"sampling": {}},
//	        "clientInfo": {"name": "ExampleClient", "version": "1.0.0"}
//	    }
//	}
//
// Initialize response:
//
//	{
//	    "jsonrpc": "2.0",
//	    "id": 1,
//	    "result": {
//	        "protocolVersion": "2025-03-26",
//	        "name": "ExampleServer",
//	        "version": "1.0.0",
//	        "capabilities": {
//	            "tools": {"listChanged": true},
//	            "logging": {}
//	        }
//	    }
//	}
package protocol
