package accounts

// TreeNode is an account with its children attached.
type TreeNode struct {
	Account  Account
	Children []*TreeNode
}

// BuildTree groups a flat account list into a forest by parent id. Accounts
// whose parent is missing from the list become roots. Sibling order follows
// the input order; callers wanting code order sort before building.
func BuildTree(flat []Account) []*TreeNode {
	nodes := make(map[int64]*TreeNode, len(flat))
	for _, acc := range flat {
		nodes[acc.ID] = &TreeNode{Account: acc}
	}

	var roots []*TreeNode
	for _, acc := range flat {
		node := nodes[acc.ID]
		if acc.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		parent, ok := nodes[*acc.ParentID]
		if !ok {
			roots = append(roots, node)
			continue
		}
		parent.Children = append(parent.Children, node)
	}
	return roots
}
