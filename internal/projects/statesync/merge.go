package statesync

import "github.com/cgscacau/green-belt-app-sub001/internal/docstore"

// DeepMerge overlays overlay onto base and returns a new document. Where
// both sides hold a map the merge recurses key by key; anything else is
// replaced by the overlay value. Neither input is modified.
func DeepMerge(base, overlay map[string]any) map[string]any {
	out := docstore.CloneDoc(base)
	if out == nil {
		out = make(map[string]any, len(overlay))
	}
	mergeInto(out, overlay)
	return out
}

// mergeInto assumes dst is already a private copy.
func mergeInto(dst, overlay map[string]any) {
	for k, ov := range overlay {
		om, overlayIsMap := ov.(map[string]any)
		dm, dstIsMap := dst[k].(map[string]any)
		if overlayIsMap && dstIsMap {
			mergeInto(dm, om)
			continue
		}
		dst[k] = docstore.Clone(ov)
	}
}
