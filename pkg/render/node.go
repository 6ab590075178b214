package render

// nodeKind discriminates the node tree produced by parse(): a flat
// sequence of text, variable, section, inverted-section, partial and
// lambda nodes (design note §9: "tokenize -> parse to a tree of
// {text|var|section|inverted|partial|lambda} nodes").
type nodeKind int

const (
	nodeText nodeKind = iota
	nodeVar
	nodeSection
	nodeInverted
	nodePartial
	nodeLambda
)

type node struct {
	kind nodeKind

	text string // nodeText

	key    string // nodeVar, nodeSection, nodeInverted, nodePartial, nodeLambda
	lambda string // nodeLambda only

	children []node // nodeSection, nodeInverted

	offset int // byte offset of the opening tag, for RenderError
}
