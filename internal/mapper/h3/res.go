package h3mapper

import "fmt"

// ToParent walks cell up to parentRes; the same resolution returns cell itself.
func (m *Mapper) ToParent(cell string, parentRes int) (string, error) {
	if err := validateRes(parentRes); err != nil {
		return "", err
	}
	c, err := parse(cell)
	if err != nil {
		return "", err
	}
	curRes := c.Resolution()
	if parentRes > curRes {
		return "", fmt.Errorf("parentRes %d must be <= cell resolution %d", parentRes, curRes)
	}
	if parentRes == curRes {
		return cell, nil
	}

	p, err := c.Parent(parentRes)
	if err != nil {
		return "", fmt.Errorf("h3 parent: %w", err)
	}
	return p.String(), nil
}
