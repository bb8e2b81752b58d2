package lifecycle_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	dbfs "github.com/garnizeh/marketplace/db"
	"github.com/garnizeh/marketplace/internal/catalog"
	"github.com/garnizeh/marketplace/internal/config"
	"github.com/garnizeh/marketplace/internal/credits"
	dbpkg "github.com/garnizeh/marketplace/internal/db"
	"github.com/garnizeh/marketplace/internal/lifecycle"
	"github.com/garnizeh/marketplace/internal/mail"
	"github.com/garnizeh/marketplace/internal/notify"
	"github.com/garnizeh/marketplace/internal/repository/sqlstore"
	"github.com/garnizeh/marketplace/pkg/models"
	"github.com/garnizeh/marketplace/pkg/repository"
)

type recordingOutbox struct {
	mu   sync.Mutex
	sent []mail.Email
	err  error
}

func (r *recordingOutbox) Enqueue(ctx context.Context, m mail.Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, m)
	return nil
}

func (r *recordingOutbox) subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.sent))
	for i, m := range r.sent {
		out[i] = m.Subject
	}
	return out
}

type env struct {
	store  *sqlstore.SQLRepo
	ctl    *lifecycle.Controller
	feed   *notify.Dispatcher
	outbox *recordingOutbox
}

func setup(t *testing.T, cfg config.LifecycleConfig) *env {
	t.Helper()
	ctx := context.Background()
	d, err := dbpkg.New(ctx, dbpkg.DriverSQLite, filepath.Join(t.TempDir(), "lifecycle.db"), nil)
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	if err := dbpkg.Migrate(ctx, d, dbfs.Migrations, dbfs.SeedFiles); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := sqlstore.New(d, nil)
	cat, err := catalog.NewLoader(ctx, store)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	feed := notify.NewDispatcher(store, nil)
	outbox := &recordingOutbox{}
	ledger := credits.New(store, config.CreditsConfig{}, nil)
	ctl := lifecycle.New(store, ledger, feed, cfg, nil, lifecycle.WithOutbox(outbox), lifecycle.WithCatalog(cat))
	return &env{store: store, ctl: ctl, feed: feed, outbox: outbox}
}

func (e *env) client(t *testing.T, id string) models.Identity {
	t.Helper()
	p := &models.Profile{ID: id, Role: models.RoleClient, DisplayName: "Client " + id, Email: id + "@example.com", Phone: "+39 02 000"}
	if err := e.store.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("CreateProfile %s: %v", id, err)
	}
	return models.Identity{UserID: id, Role: models.RoleClient, Name: p.DisplayName, Email: p.Email}
}

func (e *env) pro(t *testing.T, id string, credits int) {
	t.Helper()
	p := &models.Profile{ID: id, Role: models.RoleProfessional, DisplayName: "Pro " + id, BrandName: "Studio " + id,
		Email: id + "@example.com", Phone: "+39 06 111", Location: "Milano", Services: models.StringSet{"Sito Web"}, Credits: credits}
	if err := e.store.CreateProfile(context.Background(), p); err != nil {
		t.Fatalf("CreateProfile %s: %v", id, err)
	}
}

func (e *env) job(t *testing.T, client models.Identity) *models.Job {
	t.Helper()
	j, err := e.ctl.CreateJob(context.Background(), client, lifecycle.JobInput{
		Category: "Sito Web", Description: "Company website", Details: models.Details{"pages": 5}, Location: "Milano",
	})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return j
}

func (e *env) quote(t *testing.T, jobID, proID string) *models.Quote {
	t.Helper()
	q, err := e.ctl.SubmitQuote(context.Background(), jobID, proID, lifecycle.QuoteInput{PriceCents: 150000, Message: "Happy to help", Timeline: "2 weeks"})
	if err != nil {
		t.Fatalf("SubmitQuote by %s: %v", proID, err)
	}
	return q
}

func (e *env) balance(t *testing.T, id string) int {
	t.Helper()
	p, err := e.store.GetProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProfile %s: %v", id, err)
	}
	return p.Credits
}

func (e *env) types(t *testing.T, userID string) []models.NotificationType {
	t.Helper()
	feed, err := e.feed.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	out := make([]models.NotificationType, len(feed))
	for i, n := range feed {
		out[i] = n.Type
	}
	return out
}

func TestSubmitQuote_DebitsAndNotifies(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	c := e.client(t, "c1")
	e.pro(t, "p1", 3)
	j := e.job(t, c)

	q := e.quote(t, j.ID, "p1")
	if q.Status != models.QuotePending || q.ProfessionalName != "Studio p1" {
		t.Fatalf("unexpected quote %+v", q)
	}
	if got := e.balance(t, "p1"); got != 2 {
		t.Fatalf("expected balance 2, got %d", got)
	}
	if types := e.types(t, "c1"); len(types) != 1 || types[0] != models.NotificationNewQuote {
		t.Fatalf("client should have one NEW_QUOTE, got %v", types)
	}
	subjects := e.outbox.subjects()
	if len(subjects) != 2 || subjects[1] != "You received a new quote" {
		t.Fatalf("expected job receipt and quote emails, got %v", subjects)
	}
}

func TestSubmitQuote_PolicyFailuresLeaveNoTrace(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 2)
	e.pro(t, "broke", 0)
	j := e.job(t, c)
	in := lifecycle.QuoteInput{PriceCents: 1000, Message: "hi"}

	if _, err := e.ctl.SubmitQuote(ctx, j.ID, "broke", in); !errors.Is(err, models.ErrInsufficientCredits) {
		t.Fatalf("expected ErrInsufficientCredits, got %v", err)
	}
	if _, err := e.ctl.SubmitQuote(ctx, "missing", "p1", in); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.ctl.SubmitQuote(ctx, j.ID, "ghost", in); !errors.Is(err, models.ErrProfileInactive) {
		t.Fatalf("expected ErrProfileInactive, got %v", err)
	}
	if _, err := e.ctl.SubmitQuote(ctx, j.ID, "p1", lifecycle.QuoteInput{PriceCents: 0, Message: "free"}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected invalid input for zero price, got %v", err)
	}

	e.quote(t, j.ID, "p1")
	if _, err := e.ctl.SubmitQuote(ctx, j.ID, "p1", in); !errors.Is(err, models.ErrDuplicateQuote) {
		t.Fatalf("expected ErrDuplicateQuote, got %v", err)
	}
	if got := e.balance(t, "p1"); got != 1 {
		t.Fatalf("only the successful quote may debit, balance %d", got)
	}
	if n, _ := e.store.CountQuotesByJob(ctx, j.ID); n != 1 {
		t.Fatalf("expected exactly one quote row, got %d", n)
	}

	if _, err := e.ctl.CloseJob(ctx, j.ID, "c1"); err != nil {
		t.Fatalf("CloseJob: %v", err)
	}
	e.pro(t, "late", 5)
	if _, err := e.ctl.SubmitQuote(ctx, j.ID, "late", in); !errors.Is(err, models.ErrJobNotOpen) {
		t.Fatalf("expected ErrJobNotOpen, got %v", err)
	}
	if got := e.balance(t, "late"); got != 5 {
		t.Fatalf("rejected submission must not debit, balance %d", got)
	}
}

// Scenario A: one credit, two concurrent submissions on different jobs.
func TestSubmitQuote_ConcurrentSingleCredit(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	c := e.client(t, "c1")
	e.pro(t, "p1", 1)
	jobs := []*models.Job{e.job(t, c), e.job(t, c)}

	var wg sync.WaitGroup
	errs := make([]error, len(jobs))
	for i, j := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = e.ctl.SubmitQuote(context.Background(), j.ID, "p1", lifecycle.QuoteInput{PriceCents: 100, Message: "m"})
		}()
	}
	wg.Wait()

	ok, short := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrInsufficientCredits):
			short++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || short != 1 {
		t.Fatalf("expected one success and one insufficient, got %d/%d", ok, short)
	}
	if got := e.balance(t, "p1"); got != 0 {
		t.Fatalf("expected final balance 0, got %d", got)
	}
}

func TestSubmitQuote_ConcurrentNeverOverspends(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	c := e.client(t, "c1")
	e.pro(t, "p1", 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for range 10 {
		j := e.job(t, c)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.ctl.SubmitQuote(context.Background(), j.ID, "p1", lifecycle.QuoteInput{PriceCents: 100, Message: "m"}); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if succeeded != 3 || e.balance(t, "p1") != 0 {
		t.Fatalf("expected 3 successes and balance 0, got %d and %d", succeeded, e.balance(t, "p1"))
	}
}

// Scenario C with the default policy: siblings are rejected on acceptance.
func TestAcceptQuote_SingleWinnerRejectsSiblings(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 1)
	e.pro(t, "p2", 1)
	j := e.job(t, c)
	q1 := e.quote(t, j.ID, "p1")
	q2 := e.quote(t, j.ID, "p2")

	job, won, err := e.ctl.AcceptQuote(ctx, q1.ID, "c1")
	if err != nil {
		t.Fatalf("AcceptQuote: %v", err)
	}
	if won.Status != models.QuoteAccepted || job.Status != models.JobInProgress || job.AcceptedQuoteID == nil || *job.AcceptedQuoteID != q1.ID {
		t.Fatalf("unexpected result job=%+v quote=%+v", job, won)
	}

	if _, _, err := e.ctl.AcceptQuote(ctx, q2.ID, "c1"); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if _, _, err := e.ctl.AcceptQuote(ctx, q1.ID, "c1"); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Fatalf("re-accepting the winner must be already decided, got %v", err)
	}
	sibling, _ := e.store.GetQuote(ctx, q2.ID)
	if sibling.Status != models.QuoteRejected {
		t.Fatalf("sibling should be rejected, got %s", sibling.Status)
	}
	again, _ := e.store.GetJob(ctx, j.ID)
	if again.Status != models.JobInProgress {
		t.Fatalf("job must stay IN_PROGRESS, got %s", again.Status)
	}

	if types := e.types(t, "p1"); len(types) != 1 || types[0] != models.NotificationQuoteAccepted {
		t.Fatalf("winner feed %v", types)
	}
	if types := e.types(t, "p2"); len(types) != 1 || types[0] != models.NotificationQuoteRejected {
		t.Fatalf("sibling feed %v", types)
	}
}

func TestAcceptQuote_SiblingsStayPendingWhenConfigured(t *testing.T) {
	keep := false
	e := setup(t, config.LifecycleConfig{RejectSiblingsOnAccept: &keep})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 1)
	e.pro(t, "p2", 1)
	j := e.job(t, c)
	q1 := e.quote(t, j.ID, "p1")
	q2 := e.quote(t, j.ID, "p2")

	if _, _, err := e.ctl.AcceptQuote(ctx, q1.ID, "c1"); err != nil {
		t.Fatalf("AcceptQuote: %v", err)
	}
	if _, _, err := e.ctl.AcceptQuote(ctx, q2.ID, "c1"); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	sibling, _ := e.store.GetQuote(ctx, q2.ID)
	if sibling.Status != models.QuotePending {
		t.Fatalf("sibling should stay pending, got %s", sibling.Status)
	}
	if types := e.types(t, "p2"); len(types) != 0 {
		t.Fatalf("pending sibling must not be notified, got %v", types)
	}
}

func TestAcceptQuote_ConcurrentSiblingsOneWinner(t *testing.T) {
	for _, reject := range []bool{true, false} {
		t.Run(fmt.Sprintf("reject_siblings=%v", reject), func(t *testing.T) {
			e := setup(t, config.LifecycleConfig{RejectSiblingsOnAccept: &reject})
			ctx := context.Background()
			c := e.client(t, "c1")
			j := e.job(t, c)
			var quotes []*models.Quote
			for i := range 5 {
				id := fmt.Sprintf("p%d", i)
				e.pro(t, id, 1)
				quotes = append(quotes, e.quote(t, j.ID, id))
			}

			var wg sync.WaitGroup
			errs := make([]error, len(quotes))
			for i, q := range quotes {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, _, errs[i] = e.ctl.AcceptQuote(ctx, q.ID, "c1")
				}()
			}
			wg.Wait()

			winners := 0
			for _, err := range errs {
				if err == nil {
					winners++
				} else if !errors.Is(err, models.ErrAlreadyDecided) {
					t.Fatalf("unexpected error %v", err)
				}
			}
			all, _ := e.store.ListQuotesByJob(ctx, j.ID)
			accepted := 0
			for _, q := range all {
				if q.Status == models.QuoteAccepted {
					accepted++
				}
			}
			if winners != 1 || accepted != 1 {
				t.Fatalf("expected exactly one winner, got %d callers and %d rows", winners, accepted)
			}
		})
	}
}

func TestAcceptQuote_Errors(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.client(t, "c2")
	e.pro(t, "p1", 2)
	j := e.job(t, c)
	q := e.quote(t, j.ID, "p1")

	if _, _, err := e.ctl.AcceptQuote(ctx, q.ID, "c2"); !errors.Is(err, models.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if _, _, err := e.ctl.AcceptQuote(ctx, "nope", "c1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := e.ctl.ArchiveJob(ctx, j.ID, "c1"); err != nil {
		t.Fatalf("ArchiveJob: %v", err)
	}
	if _, _, err := e.ctl.AcceptQuote(ctx, q.ID, "c1"); !errors.Is(err, models.ErrJobClosed) {
		t.Fatalf("expected ErrJobClosed, got %v", err)
	}
}

func TestRejectQuote(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 2)
	j := e.job(t, c)
	q := e.quote(t, j.ID, "p1")

	got, err := e.ctl.RejectQuote(ctx, q.ID, "c1")
	if err != nil || got.Status != models.QuoteRejected {
		t.Fatalf("RejectQuote: %+v, %v", got, err)
	}
	if _, err := e.ctl.RejectQuote(ctx, q.ID, "c1"); !errors.Is(err, models.ErrAlreadyDecided) {
		t.Fatalf("expected ErrAlreadyDecided, got %v", err)
	}
	if types := e.types(t, "p1"); len(types) != 1 || types[0] != models.NotificationQuoteRejected {
		t.Fatalf("professional feed %v", types)
	}
	if _, err := e.ctl.SubmitQuote(ctx, j.ID, "p1", lifecycle.QuoteInput{PriceCents: 90000, Message: "revised"}); !errors.Is(err, models.ErrDuplicateQuote) {
		t.Fatalf("a professional quotes a job once, got %v", err)
	}
}

// P3: contact stays locked until acceptance, then opens both ways.
func TestContactUnlock(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 1)
	e.pro(t, "p2", 1)
	e.pro(t, "outsider", 0)
	j := e.job(t, c)
	q1 := e.quote(t, j.ID, "p1")
	e.quote(t, j.ID, "p2")

	for _, viewer := range []string{"c1", "p1", "p2"} {
		if _, err := e.ctl.ContactFor(ctx, j.ID, viewer); !errors.Is(err, models.ErrContactLocked) {
			t.Fatalf("%s: expected ErrContactLocked, got %v", viewer, err)
		}
	}
	if _, err := e.ctl.ContactFor(ctx, j.ID, "outsider"); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("outsider: expected ErrForbidden, got %v", err)
	}

	if _, _, err := e.ctl.AcceptQuote(ctx, q1.ID, "c1"); err != nil {
		t.Fatalf("AcceptQuote: %v", err)
	}
	pro, err := e.ctl.ContactFor(ctx, j.ID, "c1")
	if err != nil || pro.ProfileID != "p1" || pro.Email != "p1@example.com" || pro.Name != "Studio p1" {
		t.Fatalf("client should see p1 contact: %+v, %v", pro, err)
	}
	client, err := e.ctl.ContactFor(ctx, j.ID, "p1")
	if err != nil || client.ProfileID != "c1" || client.Phone == "" {
		t.Fatalf("winner should see client contact: %+v, %v", client, err)
	}
	if _, err := e.ctl.ContactFor(ctx, j.ID, "p2"); !errors.Is(err, models.ErrContactLocked) {
		t.Fatalf("losing sibling stays locked, got %v", err)
	}

	if _, err := e.ctl.CompleteJob(ctx, j.ID, "c1"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
	if _, err := e.ctl.ContactFor(ctx, j.ID, "p1"); err != nil {
		t.Fatalf("unlock is permanent, got %v", err)
	}
}

// Scenario B and P6.
func TestEditDeleteGating(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 1)

	fresh := e.job(t, c)
	desc := "Company website with blog"
	edited, err := e.ctl.EditJob(ctx, fresh.ID, "c1", lifecycle.JobPatch{Description: &desc})
	if err != nil || edited.Description != desc {
		t.Fatalf("EditJob: %+v, %v", edited, err)
	}
	if err := e.ctl.DeleteJob(ctx, fresh.ID, "c2"); !errors.Is(err, models.ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := e.ctl.DeleteJob(ctx, fresh.ID, "c1"); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := e.store.GetJob(ctx, fresh.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("deleted job must be gone, got %v", err)
	}

	quoted := e.job(t, c)
	e.quote(t, quoted.ID, "p1")
	if _, err := e.ctl.EditJob(ctx, quoted.ID, "c1", lifecycle.JobPatch{Description: &desc}); !errors.Is(err, models.ErrHasQuotes) {
		t.Fatalf("expected ErrHasQuotes on edit, got %v", err)
	}
	if err := e.ctl.DeleteJob(ctx, quoted.ID, "c1"); !errors.Is(err, models.ErrHasQuotes) {
		t.Fatalf("expected ErrHasQuotes on delete, got %v", err)
	}
	unchanged, _ := e.store.GetJob(ctx, quoted.ID)
	if unchanged.Description == desc {
		t.Fatalf("rejected edit must not change the job")
	}
}

func TestEditJob_ValidatesDetailsAgainstCategorySchema(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	j := e.job(t, c)

	shop := "E-commerce"
	if _, err := e.ctl.EditJob(ctx, j.ID, "c1", lifecycle.JobPatch{Category: &shop}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("E-commerce requires products, got %v", err)
	}
	details := models.Details{"products": 40}
	if _, err := e.ctl.EditJob(ctx, j.ID, "c1", lifecycle.JobPatch{Category: &shop, Details: &details}); err != nil {
		t.Fatalf("EditJob: %v", err)
	}
}

func TestCloseArchiveComplete(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 3)

	empty := e.job(t, c)
	if _, err := e.ctl.CloseJob(ctx, empty.ID, "c1"); !errors.Is(err, models.ErrNoQuotes) {
		t.Fatalf("closing an unquoted job: got %v", err)
	}

	j := e.job(t, c)
	e.quote(t, j.ID, "p1")
	closed, err := e.ctl.CloseJob(ctx, j.ID, "c1")
	if err != nil || closed.Status != models.JobCancelled {
		t.Fatalf("CloseJob: %+v, %v", closed, err)
	}
	if _, err := e.ctl.CloseJob(ctx, j.ID, "c1"); !errors.Is(err, models.ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
	archived, err := e.ctl.ArchiveJob(ctx, j.ID, "c1")
	if err != nil || archived.Status != models.JobArchived {
		t.Fatalf("ArchiveJob: %+v, %v", archived, err)
	}
	if _, err := e.ctl.ArchiveJob(ctx, j.ID, "c1"); !errors.Is(err, models.ErrAlreadyTerminal) {
		t.Fatalf("expected ErrAlreadyTerminal, got %v", err)
	}
	quotes, err := e.ctl.ListJobQuotes(ctx, j.ID, "c1")
	if err != nil || len(quotes) != 1 {
		t.Fatalf("quotes stay readable after archive: %v, %v", quotes, err)
	}
	if _, err := e.ctl.ListJobQuotes(ctx, j.ID, "p1"); !errors.Is(err, models.ErrNotOwner) {
		t.Fatalf("only the owner lists quotes, got %v", err)
	}
}

// Scenario D.
func TestCreateJob_RepairsMissingProfile(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	actor := models.Identity{UserID: "new-client", Role: models.RoleClient, Name: "Sara", Email: "sara@example.com"}

	j, err := e.ctl.CreateJob(ctx, actor, lifecycle.JobInput{Category: "Sito Web", Description: "Portfolio"})
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	p, err := e.store.GetProfile(ctx, "new-client")
	if err != nil || p.Role != models.RoleClient || p.Credits != 0 {
		t.Fatalf("expected repaired client profile, got %+v, %v", p, err)
	}
	mine, _ := e.ctl.ListClientJobs(ctx, "new-client")
	if len(mine) != 1 || mine[0].ID != j.ID || mine[0].QuoteCount != 0 {
		t.Fatalf("unexpected client jobs %+v", mine)
	}
}

func TestCreateJob_Validation(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")

	_, err := e.ctl.CreateJob(ctx, c, lifecycle.JobInput{Category: "Sito Web"})
	var ve *models.ValidationError
	if !errors.As(err, &ve) || ve.Field != "description" {
		t.Fatalf("expected description validation error, got %v", err)
	}
	if _, err := e.ctl.CreateJob(ctx, c, lifecycle.JobInput{Category: "E-commerce", Description: "shop"}); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
	pro := models.Identity{UserID: "p", Role: models.RoleProfessional}
	if _, err := e.ctl.CreateJob(ctx, pro, lifecycle.JobInput{Category: "Sito Web", Description: "x"}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("professionals cannot post jobs, got %v", err)
	}
	if n, _ := e.ctl.ListClientJobs(ctx, "c1"); len(n) != 0 {
		t.Fatalf("rejected creates must not persist")
	}
}

func TestCreateJob_NewOpportunityFanOut(t *testing.T) {
	e := setup(t, config.LifecycleConfig{NotifyNewOpportunity: true})
	c := e.client(t, "c1")
	e.pro(t, "web", 0)
	other := &models.Profile{ID: "apps", Role: models.RoleProfessional, Services: models.StringSet{"App Mobile"}}
	if err := e.store.CreateProfile(context.Background(), other); err != nil {
		t.Fatalf("CreateProfile: %v", err)
	}

	e.job(t, c)
	if types := e.types(t, "web"); len(types) != 1 || types[0] != models.NotificationNewOpportunity {
		t.Fatalf("matching professional feed %v", types)
	}
	if types := e.types(t, "apps"); len(types) != 0 {
		t.Fatalf("non-matching professional must not be notified, got %v", types)
	}
}

func TestMailFailureDoesNotBlockLifecycle(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	e.outbox.err = errors.New("queue unavailable")
	c := e.client(t, "c1")
	e.pro(t, "p1", 1)
	j := e.job(t, c)
	q := e.quote(t, j.ID, "p1")
	if _, _, err := e.ctl.AcceptQuote(context.Background(), q.ID, "c1"); err != nil {
		t.Fatalf("AcceptQuote with failing mail: %v", err)
	}
}

func TestTransactionTimeoutIsRetryable(t *testing.T) {
	e := setup(t, config.LifecycleConfig{TxTimeout: 50 * time.Millisecond})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 1)
	j := e.job(t, c)

	// hold the only sqlite connection so the next transaction cannot start
	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = e.store.InTx(ctx, func(tx repository.Store) error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	_, err := e.ctl.SubmitQuote(ctx, j.ID, "p1", lifecycle.QuoteInput{PriceCents: 100, Message: "m"})
	close(release)
	<-done
	if !errors.Is(err, models.ErrRetryable) {
		t.Fatalf("expected ErrRetryable, got %v", err)
	}
	if got := e.balance(t, "p1"); got != 1 {
		t.Fatalf("timed-out submission must not debit, balance %d", got)
	}
}

// lockRecorder logs which row lock each transaction took on the job and can
// act on the transaction right before a quote is inserted.
type lockRecorder struct {
	mu          sync.Mutex
	locks       []string
	beforeQuote func(ctx context.Context, tx repository.Store) error
}

func (r *lockRecorder) add(lock string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locks = append(r.locks, lock)
}

type lockingStore struct {
	repository.Store
	rec *lockRecorder
}

func (s lockingStore) InTx(ctx context.Context, fn func(tx repository.Store) error) error {
	return s.Store.InTx(ctx, func(tx repository.Store) error {
		return fn(lockingStore{Store: tx, rec: s.rec})
	})
}

func (s lockingStore) GetJobForUpdate(ctx context.Context, id string) (*models.Job, error) {
	s.rec.add("update")
	return s.Store.GetJobForUpdate(ctx, id)
}

func (s lockingStore) GetJobForShare(ctx context.Context, id string) (*models.Job, error) {
	s.rec.add("share")
	return s.Store.GetJobForShare(ctx, id)
}

func (s lockingStore) CreateQuote(ctx context.Context, q *models.Quote) error {
	if s.rec.beforeQuote != nil {
		if err := s.rec.beforeQuote(ctx, s.Store); err != nil {
			return err
		}
	}
	return s.Store.CreateQuote(ctx, q)
}

func (e *env) lockingController(rec *lockRecorder) *lifecycle.Controller {
	store := lockingStore{Store: e.store, rec: rec}
	return lifecycle.New(store, credits.New(store, config.CreditsConfig{}, nil), e.feed, config.LifecycleConfig{}, nil)
}

func TestJobWritesLockTheJobRow(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 3)
	quoted := e.job(t, c)
	spare := e.job(t, c)

	rec := &lockRecorder{}
	ctl := e.lockingController(rec)

	if _, err := ctl.SubmitQuote(ctx, quoted.ID, "p1", lifecycle.QuoteInput{PriceCents: 100, Message: "m"}); err != nil {
		t.Fatalf("SubmitQuote: %v", err)
	}
	budget := "1000 EUR"
	if _, err := ctl.EditJob(ctx, spare.ID, "c1", lifecycle.JobPatch{Budget: &budget}); err != nil {
		t.Fatalf("EditJob: %v", err)
	}
	if err := ctl.DeleteJob(ctx, spare.ID, "c1"); err != nil {
		t.Fatalf("DeleteJob: %v", err)
	}
	if _, err := ctl.CloseJob(ctx, quoted.ID, "c1"); err != nil {
		t.Fatalf("CloseJob: %v", err)
	}
	if _, err := ctl.ArchiveJob(ctx, quoted.ID, "c1"); err != nil {
		t.Fatalf("ArchiveJob: %v", err)
	}

	want := []string{"share", "update", "update", "update", "update"}
	if fmt.Sprint(rec.locks) != fmt.Sprint(want) {
		t.Fatalf("expected locks %v, got %v", want, rec.locks)
	}
}

func TestSubmitQuote_JobGoneBeforeInsertLeavesNoDebit(t *testing.T) {
	e := setup(t, config.LifecycleConfig{})
	ctx := context.Background()
	c := e.client(t, "c1")
	e.pro(t, "p1", 2)
	j := e.job(t, c)

	rec := &lockRecorder{beforeQuote: func(ctx context.Context, tx repository.Store) error {
		return tx.DeleteJob(ctx, j.ID)
	}}
	_, err := e.lockingController(rec).SubmitQuote(ctx, j.ID, "p1", lifecycle.QuoteInput{PriceCents: 100, Message: "m"})
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if errors.Is(err, models.ErrProfileInactive) {
		t.Fatalf("a vanished job must not read as an inactive profile: %v", err)
	}
	if got := e.balance(t, "p1"); got != 2 {
		t.Fatalf("failed submission must not debit, balance %d", got)
	}
	quotes, err := e.store.ListQuotesByProfessional(ctx, "p1")
	if err != nil || len(quotes) != 0 {
		t.Fatalf("expected no quotes, got %v %v", quotes, err)
	}
}
