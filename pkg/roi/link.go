package roi

import "roitrace/pkg/geometry"

// Link makes a and b move together. Linking is transitive through the
// group: every member of a's and b's existing groups ends up linked to
// every other member. Existing links to ROIs outside those groups are
// kept, so the relation stays symmetric.
//
// ROIs of different kinds cannot be linked; the call is then a no-op, as
// is linking an ROI to itself or to a deleted ROI.
func Link(a, b *ROI) {
	if a == nil || b == nil || a == b || a.deleted || b.deleted {
		return
	}
	if a.kind != b.kind {
		a.log.WithField("other", b.id).Debug("ignoring link between different roi kinds")
		return
	}

	group := map[*ROI]struct{}{a: {}, b: {}}
	for p := range a.peers {
		group[p] = struct{}{}
	}
	for p := range b.peers {
		group[p] = struct{}{}
	}

	for m := range group {
		for o := range group {
			if o != m {
				m.peers[o] = struct{}{}
			}
		}
	}
	a.log.WithField("group", len(group)).Debug("roi linked")
}

// Unlink removes the single link between a and b. Other members of what
// was a larger group stay linked to each other and to a and b.
func Unlink(a, b *ROI) {
	if a == nil || b == nil {
		return
	}
	delete(a.peers, b)
	delete(b.peers, a)
}

// propagate copies src's geometry, including the line width, to every
// peer. Each peer is silenced while it is updated so it does not propagate
// back, and its trace display is then driven directly: the lightweight path
// during a drag, the authoritative one when finish is set.
func propagate(src *ROI, finish bool) {
	if len(src.peers) == 0 {
		return
	}
	pts, width := src.Points(), src.Width()
	for _, peer := range src.Peers() {
		if peer.deleted {
			continue
		}

		peer.silenced++
		if err := peer.kind.validate(len(pts)); err != nil {
			peer.log.WithError(err).Debug("skipping linked update")
		} else {
			peer.setGeometry(geometry.Clone(pts), width)
		}
		peer.silenced--

		if t := peer.target; t != nil {
			if finish {
				t.ROIChangeFinished(peer)
			} else {
				t.ROIChanged(peer)
			}
		}
	}
}
