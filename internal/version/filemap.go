package version

import "fmt"

// FileMap reconstructs the path→hash map of the capsule as of v by replaying
// change sets from the root down v's primary parent chain. Merge versions
// replay over their target parent, whose map their changes were computed
// against.
func (h *History) FileMap(v *Version) (map[string]string, error) {
	chain := make([]*Version, 0, len(h.Versions))
	for cur := v; cur != nil; {
		chain = append(chain, cur)
		if cur.Parent == nil {
			break
		}
		parent := h.Lookup(*cur.Parent)
		if parent == nil {
			return nil, fmt.Errorf("version %s references unknown parent %s", cur.ID, *cur.Parent)
		}
		if len(chain) > len(h.Versions) {
			return nil, fmt.Errorf("parent cycle at version %s", cur.ID)
		}
		cur = parent
	}

	files := make(map[string]string)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, fc := range chain[i].Changes {
			switch fc.Type {
			case Deleted:
				delete(files, fc.Path)
			default:
				if fc.NewHash != nil {
					files[fc.Path] = *fc.NewHash
				}
			}
		}
	}
	return files, nil
}
