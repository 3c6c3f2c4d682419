package rbac

import (
	"context"
	"fmt"
	"os"

	"github.com/dhawalhost/permitkit/pkg/policy"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// SubjectsFile is the YAML document read by FileSource:
//
//	subjects:
//	  - id: u1
//	    roles:
//	      - name: User
//	        permissions:
//	          - {resource: todos, action: view, policy: IS_OWNER}
type SubjectsFile struct {
	Subjects []policy.Subject `yaml:"subjects" validate:"dive"`
}

// FileSource serves subjects from a static YAML file, for development and for
// deployments whose role data is shipped as configuration.
type FileSource struct {
	subjects map[string]policy.Subject
	order    []string
}

// LoadFile reads and validates a subjects file.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subjects file: %w", err)
	}
	return ParseFile(data)
}

// ParseFile parses the YAML subjects document in data. Duplicate subject ids are
// rejected.
func ParseFile(data []byte) (*FileSource, error) {
	var doc SubjectsFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse subjects file: %w", err)
	}
	if err := validator.New().Struct(doc); err != nil {
		return nil, fmt.Errorf("invalid subjects file: %w", err)
	}

	fs := &FileSource{subjects: make(map[string]policy.Subject, len(doc.Subjects))}
	for _, s := range doc.Subjects {
		if _, dup := fs.subjects[s.ID]; dup {
			return nil, fmt.Errorf("invalid subjects file: duplicate subject %q", s.ID)
		}
		fs.subjects[s.ID] = s
		fs.order = append(fs.order, s.ID)
	}
	return fs, nil
}

// Roles returns every role of every subject in file order, for registry
// validation.
func (f *FileSource) Roles() []policy.Role {
	var roles []policy.Role
	for _, id := range f.order {
		roles = append(roles, f.subjects[id].Roles...)
	}
	return roles
}

// GetSubject implements policy.SubjectSource. The returned subject is a copy;
// callers may not affect later lookups through it.
func (f *FileSource) GetSubject(_ context.Context, id string) (*policy.Subject, error) {
	s, ok := f.subjects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", policy.ErrSubjectNotFound, id)
	}
	out := policy.Subject{ID: s.ID, Roles: make([]policy.Role, len(s.Roles))}
	for i, r := range s.Roles {
		out.Roles[i] = policy.Role{Name: r.Name, Grants: append([]policy.Grant(nil), r.Grants...)}
	}
	return &out, nil
}
