package policy

// Resource instances expose the attributes the baseline policies inspect either
// through these accessor interfaces or, for data decoded from JSON, as a
// map[string]any using the keys below.

// Owned is implemented by resources that record the subject owning them.
type Owned interface {
	OwnerID() string
}

// Authored is implemented by resources that record the subject that wrote them.
type Authored interface {
	AuthorID() string
}

// Collaborative is implemented by resources shared with other subjects.
type Collaborative interface {
	CollaboratorIDs() []string
}

// Completable is implemented by resources carrying a completion flag.
type Completable interface {
	IsCompleted() bool
}

// Attribute keys recognised on map instances.
const (
	KeyOwner         = "userId"
	KeyAuthor        = "authorId"
	KeyCollaborators = "invitedUsers"
	KeyCompleted     = "completed"
)

// ownerIDs returns the owner and author identifiers of instance. Either may be
// empty when the instance does not carry it or carries it with the wrong type.
func ownerIDs(instance any) (owner, author string) {
	switch v := instance.(type) {
	case nil:
		return "", ""
	case map[string]any:
		owner, _ = v[KeyOwner].(string)
		author, _ = v[KeyAuthor].(string)
		return owner, author
	}
	if o, ok := instance.(Owned); ok {
		owner = o.OwnerID()
	}
	if a, ok := instance.(Authored); ok {
		author = a.AuthorID()
	}
	return owner, author
}

// hasCollaborator reports whether id appears in the instance's collaborator set.
func hasCollaborator(instance any, id string) bool {
	switch v := instance.(type) {
	case nil:
		return false
	case map[string]any:
		switch ids := v[KeyCollaborators].(type) {
		case []string:
			for _, c := range ids {
				if c == id {
					return true
				}
			}
		case []any:
			for _, c := range ids {
				if s, ok := c.(string); ok && s == id {
					return true
				}
			}
		}
		return false
	case Collaborative:
		for _, c := range v.CollaboratorIDs() {
			if c == id {
				return true
			}
		}
	}
	return false
}

// isCompleted reports whether the instance's completion flag is set. Only a
// boolean true counts.
func isCompleted(instance any) bool {
	switch v := instance.(type) {
	case nil:
		return false
	case map[string]any:
		done, _ := v[KeyCompleted].(bool)
		return done
	case Completable:
		return v.IsCompleted()
	}
	return false
}
