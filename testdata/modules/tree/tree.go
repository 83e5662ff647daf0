package tree

type Node struct {
	ID     int
	Tags   []string
	Parent *Node
}

type Forest struct {
	Roots []Node
	Index map[string]*Node
}

type Alpha struct {
	Name string
	Beta *Beta
}

type Beta struct {
	Alpha Alpha
}
