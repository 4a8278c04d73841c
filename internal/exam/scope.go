package exam

// capability describes which exam scopes a principal may enter: admins hold
// a blanket grant, everyone else is limited to their approved subject names.
type capability struct {
	admin    bool
	subjects map[string]struct{}
}

func newCapability(role string, approvedSubjects []string) capability {
	c := capability{admin: role == "admin"}
	if c.admin {
		return c
	}
	c.subjects = make(map[string]struct{}, len(approvedSubjects))
	for _, name := range approvedSubjects {
		if name != "" {
			c.subjects[name] = struct{}{}
		}
	}
	return c
}

// allows reports whether the capability covers the requested subject scope.
// It fails closed: a non-admin with an empty approved set is always refused,
// and a named subject must be a member of the set.
func (c capability) allows(subjectName string) error {
	if c.admin {
		return nil
	}
	if len(c.subjects) == 0 {
		return ErrNotApproved
	}
	if subjectName == "" {
		return nil
	}
	if _, ok := c.subjects[subjectName]; !ok {
		return ErrSubjectNotAllowed
	}
	return nil
}
