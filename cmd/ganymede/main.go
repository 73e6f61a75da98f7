// Ganymede is a memory-augmented chat proxy between a browser client and the
// Gemini API.
//
// It assembles each prompt from a persistent memory record and the client's
// bounded conversation history, relays streaming responses as SSE with a
// fallback-once policy on quota exhaustion, and distills completed turns into
// the memory record in the background.
//
// Usage:
//
//	# Start with default configuration and environment variables
//	ganymede run
//
//	# Start with a configuration file
//	ganymede run --config /etc/ganymede/config.yaml
//
//	# Show version information
//	ganymede version
package main

func main() {
	Execute()
}
