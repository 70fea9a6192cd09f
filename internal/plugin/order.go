package plugin

// resolveOrder computes the dispatch and initialization order.
//
// Plugins flagged ProcessLast, plus every plugin depending on one of them
// directly or transitively, form the late phase. Each phase is ordered
// depth-first so dependencies precede dependents; ties keep registration
// order. The result is the normal phase followed by the late phase.
func resolveOrder(plugins []Plugin) ([]Plugin, error) {
	late := lateClosure(plugins)

	var normal, last []Plugin
	for _, p := range plugins {
		if late[p.Name()] {
			last = append(last, p)
		} else {
			normal = append(normal, p)
		}
	}

	first, err := orderPhase(normal, PhaseNormal)
	if err != nil {
		return nil, err
	}
	second, err := orderPhase(last, PhaseLast)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}

// lateClosure returns the names of plugins in the late phase.
func lateClosure(plugins []Plugin) map[string]bool {
	late := make(map[string]bool)
	for _, p := range plugins {
		if p.ProcessLast() {
			late[p.Name()] = true
		}
	}

	for changed := true; changed; {
		changed = false
		for _, p := range plugins {
			if late[p.Name()] {
				continue
			}
			for _, dep := range p.Dependencies() {
				if late[dep] {
					late[p.Name()] = true
					changed = true
					break
				}
			}
		}
	}
	return late
}

// orderPhase topologically sorts one phase.
func orderPhase(phase []Plugin, which Phase) ([]Plugin, error) {
	byName := make(map[string]Plugin, len(phase))
	for _, p := range phase {
		byName[p.Name()] = p
	}

	const (
		unvisited = iota
		visiting
		done
	)
	marks := make(map[string]int, len(phase))
	out := make([]Plugin, 0, len(phase))

	var visit func(p Plugin, path []string) error
	visit = func(p Plugin, path []string) error {
		name := p.Name()
		path = append(path, name)

		switch marks[name] {
		case done:
			return nil
		case visiting:
			return &ConfigError{Plugin: path[0], Phase: which, Path: path, Err: ErrCircularDependency}
		}

		marks[name] = visiting
		for _, dep := range p.Dependencies() {
			d, ok := byName[dep]
			if !ok {
				return &ConfigError{Plugin: name, Phase: which, Path: append(path, dep), Err: ErrPhaseViolation}
			}
			if err := visit(d, path); err != nil {
				return err
			}
		}
		marks[name] = done
		out = append(out, p)
		return nil
	}

	for _, p := range phase {
		if err := visit(p, nil); err != nil {
			return nil, err
		}
	}
	return out, nil
}
