package service

import (
	"context"
	"fmt"
	"sync"

	"classquest/internal/apperr"
	"classquest/internal/models"
)

// fakeSeriesStore is an in-memory SeriesAdminStore for service tests
type fakeSeriesStore struct {
	mu         sync.Mutex
	nextID     int64
	series     map[int64]*models.ChallengeSeries
	challenges map[int64]*models.CustomChallengeDefinition
}

func newFakeSeriesStore() *fakeSeriesStore {
	return &fakeSeriesStore{
		nextID:     1,
		series:     make(map[int64]*models.ChallengeSeries),
		challenges: make(map[int64]*models.CustomChallengeDefinition),
	}
}

func (f *fakeSeriesStore) CreateSeries(s *models.ChallengeSeries) (*models.ChallengeSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.series {
		if existing.ClassroomID == s.ClassroomID {
			return nil, apperr.Conflict("classroom already has a challenge series")
		}
	}
	copied := *s
	copied.ID = f.nextID
	f.nextID++
	f.series[copied.ID] = &copied
	return &copied, nil
}

func (f *fakeSeriesStore) GetSeriesByID(id int64) (*models.ChallengeSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.series[id]
	if !ok {
		return nil, apperr.NotFound("series not found")
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSeriesStore) GetSeriesByClassroom(classroomID int64) (*models.ChallengeSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.series {
		if s.ClassroomID == classroomID {
			copied := *s
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("series not found")
}

func (f *fakeSeriesStore) UpdateSeries(s *models.ChallengeSeries) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.series[s.ID]; !ok {
		return apperr.NotFound("series not found")
	}
	copied := *s
	f.series[s.ID] = &copied
	return nil
}

func (f *fakeSeriesStore) DeleteSeries(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.series, id)
	for cid, c := range f.challenges {
		if c.SeriesID == id {
			delete(f.challenges, cid)
		}
	}
	return nil
}

func (f *fakeSeriesStore) CreateChallenge(d *models.CustomChallengeDefinition) (*models.CustomChallengeDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.challenges {
		if existing.SeriesID == d.SeriesID && existing.DisplayOrder == d.DisplayOrder {
			return nil, apperr.Conflict(fmt.Sprintf("display order %d already in use", d.DisplayOrder))
		}
	}
	copied := *d
	copied.ID = f.nextID
	f.nextID++
	f.challenges[copied.ID] = &copied
	return &copied, nil
}

func (f *fakeSeriesStore) GetChallenge(id int64) (*models.CustomChallengeDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.challenges[id]
	if !ok {
		return nil, apperr.NotFound("challenge not found")
	}
	copied := *d
	return &copied, nil
}

func (f *fakeSeriesStore) ListChallenges(seriesID int64) ([]models.CustomChallengeDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CustomChallengeDefinition
	for order := 0; order < len(f.challenges)+1; order++ {
		for _, d := range f.challenges {
			if d.SeriesID == seriesID && d.DisplayOrder == order {
				out = append(out, *d)
			}
		}
	}
	return out, nil
}

func (f *fakeSeriesStore) UpdateChallenge(d *models.CustomChallengeDefinition) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.challenges[d.ID]; !ok {
		return apperr.NotFound("challenge not found")
	}
	copied := *d
	f.challenges[d.ID] = &copied
	return nil
}

func (f *fakeSeriesStore) DeleteChallenge(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.challenges, id)
	return nil
}

func (f *fakeSeriesStore) ReorderChallenges(seriesID int64, orderedIDs []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, id := range orderedIDs {
		d, ok := f.challenges[id]
		if !ok || d.SeriesID != seriesID {
			return apperr.NotFound(fmt.Sprintf("challenge %d not in series", id))
		}
		d.DisplayOrder = i
	}
	return nil
}

func (f *fakeSeriesStore) AddAttachment(a *models.Attachment) error {
	return nil
}

func (f *fakeSeriesStore) ListAttachments(challengeID int64) ([]models.Attachment, error) {
	return nil, nil
}

// fakeRecordStore is an in-memory RecordAdminStore for service tests
type fakeRecordStore struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*models.StudentChallengeRecord
	// mutateConflicts makes the next N Mutate attempts fail their write,
	// exercising the retry path.
	mutateConflicts int
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{nextID: 1, records: make(map[int64]*models.StudentChallengeRecord)}
}

func (f *fakeRecordStore) CreateRecord(rec *models.StudentChallengeRecord) (*models.StudentChallengeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *rec
	copied.ID = f.nextID
	copied.Version = 1
	f.nextID++
	f.records[copied.ID] = &copied
	out := copied
	return &out, nil
}

func (f *fakeRecordStore) TokenExists(token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRecordStore) find(seriesID, studentID int64) *models.StudentChallengeRecord {
	for _, rec := range f.records {
		if rec.SeriesID == seriesID && rec.StudentID == studentID {
			return rec
		}
	}
	return nil
}

func (f *fakeRecordStore) GetRecord(seriesID, studentID int64) (*models.StudentChallengeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec := f.find(seriesID, studentID)
	if rec == nil {
		return nil, apperr.NotFound("challenge record not found")
	}
	copied := *rec
	return &copied, nil
}

func (f *fakeRecordStore) GetRecordByToken(token string) (*models.StudentChallengeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, rec := range f.records {
		if rec.Token == token {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("challenge record not found")
}

func (f *fakeRecordStore) Mutate(seriesID, studentID int64, fn func(*models.StudentChallengeRecord) error) (*models.StudentChallengeRecord, error) {
	const attempts = 2
	for i := 0; i < attempts; i++ {
		f.mu.Lock()
		stored := f.find(seriesID, studentID)
		if stored == nil {
			f.mu.Unlock()
			return nil, apperr.NotFound("challenge record not found")
		}
		working := *stored
		f.mu.Unlock()

		if err := fn(&working); err != nil {
			return nil, err
		}

		f.mu.Lock()
		if f.mutateConflicts > 0 {
			f.mutateConflicts--
			f.mu.Unlock()
			continue
		}
		working.Version++
		*stored = working
		f.mu.Unlock()
		out := working
		return &out, nil
	}
	return nil, apperr.Transient("progress record contention, try again", nil)
}

func (f *fakeRecordStore) ListRecords(seriesID int64) ([]models.StudentChallengeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.StudentChallengeRecord
	for _, rec := range f.records {
		if rec.SeriesID == seriesID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (f *fakeRecordStore) DeleteRecord(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

// capturingLedger records credits instead of applying them
type capturingLedger struct {
	mu      sync.Mutex
	credits []int
}

func (l *capturingLedger) Credit(ctx context.Context, studentID, classroomID int64, amount int, reason string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credits = append(l.credits, amount)
	return amount, nil
}

func (l *capturingLedger) total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	sum := 0
	for _, c := range l.credits {
		sum += c
	}
	return sum
}

// capturingNotifier records notifications instead of delivering them
type capturingNotifier struct {
	mu   sync.Mutex
	sent []Notification
}

func (n *capturingNotifier) Notify(ctx context.Context, msg Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
	return nil
}

func (n *capturingNotifier) ofKind(kind string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, msg := range n.sent {
		if msg.Kind == kind {
			out = append(out, msg)
		}
	}
	return out
}

// disabledRemote is a RemoteArtifactHost that is never configured
type disabledRemote struct{}

func (disabledRemote) IsEnabled() bool { return false }
func (disabledRemote) StageFile(ctx context.Context, branch, path, content string) error {
	return nil
}
