package audio

import "fmt"

// Tap is a non-owning observer invoked with a buffer at a wiring point; it
// must not retain or mutate the slice past the call (pre-tap and post-tap
// hooks for the tuned analyser and the VU/clip monitors).
type Tap func(samples []float32)

// GraphInstance is the per-frame wiring of source through the enabled
// effect chain to the sink. It is ephemeral: built for one frame, torn
// down once that frame's scheduled playback window has elapsed. Effect
// nodes it references are owned by the Session, not by the graph.
type GraphInstance struct {
	nodes   []Node
	preTap  Tap
	postTap Tap
	bypass  bool
}

// Assembler builds a GraphInstance for each incoming frame from the
// Session's fixed-order effect node list, honouring each node's Enabled
// flag without ever reordering the chain.
type Assembler struct {
	preTap  Tap
	postTap Tap
}

// NewAssembler creates an Assembler using preTap/postTap as the
// pre-effects and post-effects observation hooks. Either may be nil.
func NewAssembler(preTap, postTap Tap) *Assembler {
	return &Assembler{preTap: preTap, postTap: postTap}
}

// Build wires orderedNodes (already in the fixed Session order: Compressor,
// Bandpass, Notch, NR, Peaking EQ, Squelch, Stereo, Gain) into a
// GraphInstance, skipping any node whose Enabled() is false.
//
// If wiring panics — a defensive backstop, since node construction is the
// Session's responsibility and should never fail here — Build recovers
// and returns a bypass graph so a single bad node degrades gracefully
// instead of silencing playback.
func (a *Assembler) Build(orderedNodes []Node) (g *GraphInstance, degraded bool) {
	defer func() {
		if r := recover(); r != nil {
			g = a.bypassGraph(orderedNodes)
			degraded = true
		}
	}()

	active := make([]Node, 0, len(orderedNodes))
	for _, n := range orderedNodes {
		if n == nil {
			return a.bypassGraph(orderedNodes), true
		}
		if n.Enabled() {
			active = append(active, n)
		}
	}

	return &GraphInstance{nodes: active, preTap: a.preTap, postTap: a.postTap}, false
}

// bypassGraph returns the degraded-mode Source → Gain → Sink path used
// when wiring the full chain fails. Only the Gain node from orderedNodes
// is kept; if it is absent or nil the path is Source → Sink.
func (a *Assembler) bypassGraph(orderedNodes []Node) *GraphInstance {
	var nodes []Node
	for _, n := range orderedNodes {
		if n != nil && n.ID() == EffectGain {
			nodes = []Node{n}
			break
		}
	}
	return &GraphInstance{nodes: nodes, preTap: a.preTap, postTap: a.postTap, bypass: true}
}

// Run pushes samples through the wired chain in order, invoking the
// pre-tap before any effect runs and the post-tap after the last one.
func (g *GraphInstance) Run(samples []float32) []float32 {
	if g.preTap != nil {
		g.preTap(samples)
	}

	out := samples
	for _, n := range g.nodes {
		out = n.Apply(out)
	}

	if g.postTap != nil {
		g.postTap(out)
	}
	return out
}

// Bypass reports whether this graph is the degraded-mode fallback path.
func (g *GraphInstance) Bypass() bool { return g.bypass }

// ErrNilNode describes a missing entry in the fixed effect order. Build
// does not return it: a nil node makes Build fall back to the bypass graph.
var ErrNilNode = fmt.Errorf("audio: nil node in fixed effect order")
