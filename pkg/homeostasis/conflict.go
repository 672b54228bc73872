package homeostasis

// detectPairConflicts compares two transactions' symbol indexes over every
// file either one touched, applying the severity table from spec.md §4.13:
// identical symbols or distinct files carry no conflict; a shared file with
// no API divergence is a medium file_conflict; a changed function signature
// or attribute type is high; a removed class attribute is critical.
func detectPairConflicts(a, b *Transaction) []ConflictReport {
	if a.Changes == nil || b.Changes == nil {
		return nil
	}

	var reports []ConflictReport
	for file, symA := range a.Changes.Files {
		symB, shared := b.Changes.Files[file]
		if !shared {
			continue
		}

		if removed := removedAttributes(symA, symB); len(removed) > 0 {
			reports = append(reports, ConflictReport{
				TaskA: a.TaskID, TaskB: b.TaskID, File: file,
				Severity: SeverityCritical, Type: ConflictClassAttributesRemoved,
				Detail: "attributes removed: " + joinSet(removed),
			})
			continue
		}

		if changed := changedAttributeTypes(symA, symB); len(changed) > 0 {
			reports = append(reports, ConflictReport{
				TaskA: a.TaskID, TaskB: b.TaskID, File: file,
				Severity: SeverityHigh, Type: ConflictAttributeTypeChanged,
				Detail: "attribute type changed: " + joinSet(changed),
			})
			continue
		}

		if changed := changedFunctionSignatures(symA, symB); len(changed) > 0 {
			reports = append(reports, ConflictReport{
				TaskA: a.TaskID, TaskB: b.TaskID, File: file,
				Severity: SeverityHigh, Type: ConflictFunctionSignature,
				Detail: "function signature changed: " + joinSet(changed),
			})
			continue
		}

		if identicalSymbols(symA, symB) {
			continue
		}

		reports = append(reports, ConflictReport{
			TaskA: a.TaskID, TaskB: b.TaskID, File: file,
			Severity: SeverityMedium, Type: ConflictFile,
			Detail: "same file touched by both tasks",
		})
	}

	for i := range reports {
		reports[i].AutoResolvable = reports[i].Severity <= SeverityMedium
	}
	return reports
}

func identicalSymbols(a, b FileSymbols) bool {
	return mapsEqual(a.Functions, b.Functions) && mapsEqual(a.Attributes, b.Attributes)
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if bv, ok := b[k]; !ok || bv != v {
			return false
		}
	}
	return true
}

func removedAttributes(a, b FileSymbols) []string {
	var removed []string
	for key := range a.Attributes {
		if _, ok := b.Attributes[key]; !ok {
			removed = append(removed, key)
		}
	}
	for key := range b.Attributes {
		if _, ok := a.Attributes[key]; !ok {
			removed = append(removed, key)
		}
	}
	return removed
}

func changedAttributeTypes(a, b FileSymbols) []string {
	var changed []string
	for key, typA := range a.Attributes {
		if typB, ok := b.Attributes[key]; ok && typA != typB {
			changed = append(changed, key)
		}
	}
	return changed
}

func changedFunctionSignatures(a, b FileSymbols) []string {
	var changed []string
	for name, sigA := range a.Functions {
		if sigB, ok := b.Functions[name]; ok && sigA != sigB {
			changed = append(changed, name)
		}
	}
	return changed
}

func joinSet(items []string) string {
	seen := make(map[string]bool, len(items))
	var out []string
	for _, it := range items {
		if !seen[it] {
			seen[it] = true
			out = append(out, it)
		}
	}
	s := ""
	for i, it := range out {
		if i > 0 {
			s += ", "
		}
		s += it
	}
	return s
}

// maxSeverity reports the highest severity among reports, or SeverityNone
// if there are none.
func maxSeverity(reports []ConflictReport) Severity {
	max := SeverityNone
	for _, r := range reports {
		if r.Severity > max {
			max = r.Severity
		}
	}
	return max
}
