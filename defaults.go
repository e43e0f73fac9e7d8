package agent

// DefaultMaxSteps equals the step loop's own hard ceiling,
// steploop.MaxSteps. No option overrides it; the loop reads
// steploop.MaxSteps directly.
const DefaultMaxSteps = 200

// DefaultStreamBufferSize is the default channel buffer size for streaming events.
const DefaultStreamBufferSize = 64
