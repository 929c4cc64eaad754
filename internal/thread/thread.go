// Package thread turns the flat comment list of a review into a reply tree.
//
// FLAT LIST -> FOREST:
// The API returns comments as a flat list where a reply only knows its parent's ID.
// Build links them in two passes:
//
//  1. Index every comment by ID in a map.
//  2. Walk the list in its original order. A comment without a parent becomes a root;
//     a comment whose parent is in the map is appended to that parent's Replies.
//
// Both passes are O(n), and because pass 2 follows the input order, siblings keep the
// order the server returned them in (oldest first).
//
// ORPHANS:
// A reply whose parent is not in the batch (the parent was deleted after the reply
// was posted) is indexed but never attached, so it is silently dropped from the tree.
// This is the intended display behaviour: a reply without its context is not shown.
// Orphans lets callers find those comments if they want to log or count them.
package thread

import (
	"github.com/sakif/fieldfinder/internal/model"
)

// MaxReplyDepth is the deepest level at which the interface offers a "reply" action.
// Roots are depth 0, so only roots can be replied to and threads render two levels.
const MaxReplyDepth = 0

// Build converts a flat comment list into a forest of root comments.
//
// The input slice is not modified: every comment is copied before linking, and any
// Replies already present on the inputs are discarded. Comment IDs are assumed to be
// unique; with duplicates the last one wins the index slot.
func Build(flat []model.Comment) []*model.Comment {
	nodes := make([]*model.Comment, len(flat))
	byID := make(map[string]*model.Comment, len(flat))

	// === PASS 1: index ===
	for i := range flat {
		c := flat[i]
		c.Replies = nil
		nodes[i] = &c
		byID[c.ID] = &c
	}

	// === PASS 2: link ===
	roots := make([]*model.Comment, 0, len(flat))
	for _, c := range nodes {
		if !c.HasParent() {
			roots = append(roots, c)
			continue
		}
		if parent, ok := byID[*c.ParentID]; ok {
			parent.Replies = append(parent.Replies, c)
		}
	}

	return roots
}

// Orphans returns the comments Build drops: replies whose parent is not in the batch.
func Orphans(flat []model.Comment) []model.Comment {
	ids := make(map[string]struct{}, len(flat))
	for _, c := range flat {
		ids[c.ID] = struct{}{}
	}

	var orphans []model.Comment
	for _, c := range flat {
		if !c.HasParent() {
			continue
		}
		if _, ok := ids[*c.ParentID]; !ok {
			orphans = append(orphans, c)
		}
	}
	return orphans
}

// Walk visits every node in pre-order (a parent before its replies),
// passing the node's depth: 0 for roots, 1 for their replies, and so on.
func Walk(roots []*model.Comment, fn func(c *model.Comment, depth int)) {
	var visit func(nodes []*model.Comment, depth int)
	visit = func(nodes []*model.Comment, depth int) {
		for _, c := range nodes {
			fn(c, depth)
			visit(c.Replies, depth+1)
		}
	}
	visit(roots, 0)
}

// Flatten returns the tree's nodes in pre-order, with Replies stripped from the copies.
func Flatten(roots []*model.Comment) []model.Comment {
	var out []model.Comment
	Walk(roots, func(c *model.Comment, _ int) {
		flat := *c
		flat.Replies = nil
		out = append(out, flat)
	})
	return out
}

// Count returns the number of nodes in the tree.
func Count(roots []*model.Comment) int {
	n := 0
	Walk(roots, func(*model.Comment, int) { n++ })
	return n
}

// Find returns the node with the given ID and its depth, or (nil, -1).
func Find(roots []*model.Comment, id string) (*model.Comment, int) {
	var (
		found *model.Comment
		at    = -1
	)
	Walk(roots, func(c *model.Comment, depth int) {
		if found == nil && c.ID == id {
			found, at = c, depth
		}
	})
	return found, at
}

// CanReply reports whether a node at this depth may receive replies.
func CanReply(depth int) bool {
	return depth >= 0 && depth <= MaxReplyDepth
}

// DisplayDepth maps a tree depth onto the two rendered levels.
// Anything nested below a reply is drawn at reply level.
func DisplayDepth(depth int) int {
	if depth > 1 {
		return 1
	}
	return depth
}
