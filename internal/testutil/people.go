package testutil

import (
	"context"
	"slices"
	"sync"

	appserrors "planner/internal/applications/errors"
	appsrepo "planner/internal/applications/repository"
	direrrors "planner/internal/directory/errors"
	dirrepo "planner/internal/directory/repository"
	"planner/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	_ dirrepo.Directory                = (*Directory)(nil)
	_ appsrepo.ApplicationRepository   = (*Directory)(nil)
	_ appsrepo.InterviewListRepository = (*InterviewListStore)(nil)
)

// Directory holds panelists and applications. It serves both the read-only
// directory and the application write repository, which share a collection.
type Directory struct {
	mu           sync.Mutex
	panelists    map[string]*model.Panelist
	applications map[string]*model.Application

	// WriteErr, when set, fails every application write.
	WriteErr error
}

func NewDirectory() *Directory {
	return &Directory{
		panelists:    make(map[string]*model.Panelist),
		applications: make(map[string]*model.Application),
	}
}

func (d *Directory) AddPanelist(name, email string) *model.Panelist {
	d.mu.Lock()
	defer d.mu.Unlock()
	p := &model.Panelist{ID: primitive.NewObjectID().Hex(), Name: name, Email: email}
	d.panelists[p.ID] = p
	return p
}

func (d *Directory) AddApplication(name, email string, listIDs ...string) *model.Application {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := &model.Application{
		ID:               primitive.NewObjectID().Hex(),
		Name:             name,
		Email:            email,
		InterviewListIDs: append([]string{}, listIDs...),
	}
	d.applications[a.ID] = a
	return cloneApplication(a)
}

// Application returns a copy of the stored application, or nil.
func (d *Directory) Application(id string) *model.Application {
	d.mu.Lock()
	defer d.mu.Unlock()
	if a, ok := d.applications[id]; ok {
		return cloneApplication(a)
	}
	return nil
}

func (d *Directory) FindPanelistByID(ctx context.Context, id string) (*model.Panelist, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.panelists[id]
	if !ok {
		return nil, direrrors.ErrPanelistNotFound
	}
	c := *p
	return &c, nil
}

func (d *Directory) FindApplicationByID(ctx context.Context, id string) (*model.Application, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	a, ok := d.applications[id]
	if !ok {
		return nil, direrrors.ErrApplicationNotFound
	}
	return cloneApplication(a), nil
}

func (d *Directory) SetMeetingDetails(ctx context.Context, id string, details *model.MeetingDetails) error {
	return d.mutate(id, func(a *model.Application) {
		md := *details
		a.MeetingDetails = &md
	})
}

func (d *Directory) RefreshMeetingDetails(ctx context.Context, id string, details *model.MeetingDetails) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteErr != nil {
		return d.WriteErr
	}
	if a, ok := d.applications[id]; ok && a.MeetingDetails != nil && a.MeetingDetails.SlotID == details.SlotID {
		md := *details
		a.MeetingDetails = &md
	}
	return nil
}

func (d *Directory) ClearMeetingDetails(ctx context.Context, id string, slotID string) error {
	return d.mutate(id, func(a *model.Application) {
		if a.MeetingDetails != nil && a.MeetingDetails.SlotID == slotID {
			a.MeetingDetails = nil
		}
	})
}

func (d *Directory) AddInterviewList(ctx context.Context, id string, listID string) error {
	return d.mutate(id, func(a *model.Application) {
		if !slices.Contains(a.InterviewListIDs, listID) {
			a.InterviewListIDs = append(a.InterviewListIDs, listID)
		}
	})
}

func (d *Directory) RemoveInterviewList(ctx context.Context, id string, listID string) error {
	return d.mutate(id, func(a *model.Application) {
		a.InterviewListIDs = slices.DeleteFunc(a.InterviewListIDs, func(s string) bool { return s == listID })
	})
}

func (d *Directory) ReplaceInterviewLists(ctx context.Context, id string, listIDs []string) error {
	return d.mutate(id, func(a *model.Application) {
		a.InterviewListIDs = slices.Clone(listIDs)
	})
}

func (d *Directory) mutate(id string, fn func(*model.Application)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.WriteErr != nil {
		return d.WriteErr
	}
	a, ok := d.applications[id]
	if !ok {
		return appserrors.ErrApplicationNotFound
	}
	fn(a)
	return nil
}

func cloneApplication(a *model.Application) *model.Application {
	c := *a
	c.InterviewListIDs = slices.Clone(a.InterviewListIDs)
	if a.MeetingDetails != nil {
		md := *a.MeetingDetails
		c.MeetingDetails = &md
	}
	return &c
}

type InterviewListStore struct {
	mu    sync.Mutex
	lists map[string]*model.InterviewList
}

func NewInterviewListStore() *InterviewListStore {
	return &InterviewListStore{lists: make(map[string]*model.InterviewList)}
}

func (s *InterviewListStore) Add(name string, applicationIDs ...string) *model.InterviewList {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := &model.InterviewList{
		ID:                   primitive.NewObjectID().Hex(),
		ListName:             name,
		ApplicationIDs:       append([]string{}, applicationIDs...),
		EligibleApplications: append([]string{}, applicationIDs...),
	}
	s.lists[l.ID] = l
	return cloneList(l)
}

func (s *InterviewListStore) FindByID(ctx context.Context, id string) (*model.InterviewList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[id]
	if !ok {
		return nil, appserrors.ErrInterviewListNotFound
	}
	return cloneList(l), nil
}

func (s *InterviewListStore) AddApplication(ctx context.Context, listID string, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[listID]
	if !ok {
		return appserrors.ErrInterviewListNotFound
	}
	if !slices.Contains(l.ApplicationIDs, applicationID) {
		l.ApplicationIDs = append(l.ApplicationIDs, applicationID)
	}
	if !slices.Contains(l.EligibleApplications, applicationID) {
		l.EligibleApplications = append(l.EligibleApplications, applicationID)
	}
	return nil
}

func (s *InterviewListStore) RemoveApplication(ctx context.Context, listID string, applicationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[listID]
	if !ok {
		return appserrors.ErrInterviewListNotFound
	}
	pull(l, applicationID)
	return nil
}

func (s *InterviewListStore) RemoveApplicationFromOthers(ctx context.Context, applicationID string, keepListID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, l := range s.lists {
		if id != keepListID {
			pull(l, applicationID)
		}
	}
	return nil
}

func pull(l *model.InterviewList, applicationID string) {
	match := func(s string) bool { return s == applicationID }
	l.ApplicationIDs = slices.DeleteFunc(l.ApplicationIDs, match)
	l.EligibleApplications = slices.DeleteFunc(l.EligibleApplications, match)
}

func cloneList(l *model.InterviewList) *model.InterviewList {
	c := *l
	c.ApplicationIDs = slices.Clone(l.ApplicationIDs)
	c.EligibleApplications = slices.Clone(l.EligibleApplications)
	return &c
}
