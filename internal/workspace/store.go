package workspace

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/HendryAvila/taskpilot/internal/storage"
)

const (
	defaultTaskLimit = 50
	maxTaskLimit     = 200
)

// Store is the SQLite-backed workspace. It implements the task, project,
// sprint and comment services and the read-only directory queries used to
// build prompt context.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) workspace.db under dataDir.
func Open(dataDir string) (*Store, error) {
	db, err := storage.Open(dataDir, "workspace.db")
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("workspace: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	return storage.Migrate(s.db, `
		CREATE TABLE IF NOT EXISTS users (
			id    INTEGER PRIMARY KEY AUTOINCREMENT,
			name  TEXT NOT NULL,
			email TEXT,
			role  TEXT
		);

		CREATE TABLE IF NOT EXISTS projects (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT    NOT NULL,
			description TEXT,
			owner_id    INTEGER NOT NULL REFERENCES users(id),
			created_at  TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS project_members (
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			PRIMARY KEY (project_id, user_id)
		);

		CREATE TABLE IF NOT EXISTS sprints (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			name       TEXT    NOT NULL,
			status     TEXT    NOT NULL DEFAULT 'planned',
			start_date TEXT,
			end_date   TEXT
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			sprint_id   INTEGER REFERENCES sprints(id) ON DELETE SET NULL,
			title       TEXT    NOT NULL,
			description TEXT,
			status      TEXT    NOT NULL DEFAULT 'todo',
			priority    TEXT    NOT NULL DEFAULT 'medium',
			assignee_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
			creator_id  INTEGER NOT NULL REFERENCES users(id),
			due_date    TEXT,
			created_at  TEXT    NOT NULL
		);

		CREATE TABLE IF NOT EXISTS comments (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			author_id  INTEGER NOT NULL REFERENCES users(id),
			body       TEXT    NOT NULL,
			created_at TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_members_user   ON project_members(user_id);
		CREATE INDEX IF NOT EXISTS idx_sprints_project ON sprints(project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_project  ON tasks(project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(assignee_id);
		CREATE INDEX IF NOT EXISTS idx_comments_task  ON comments(task_id);
	`)
}

// ─── Users ───────────────────────────────────────────────────────────────────

// EnsureUser returns the stored user for u. A non-zero ID is upserted as
// given; otherwise the user is looked up by name and created if missing.
func (s *Store) EnsureUser(ctx context.Context, u User) (User, error) {
	u.Name = strings.TrimSpace(u.Name)

	if u.ID != 0 {
		if u.Name == "" {
			u.Name = fmt.Sprintf("user-%d", u.ID)
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO users (id, name, email, role) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name  = excluded.name,
				email = COALESCE(excluded.email, users.email),
				role  = COALESCE(excluded.role, users.role)`,
			u.ID, u.Name, storage.NullableString(u.Email), storage.NullableString(u.Role),
		)
		if err != nil {
			return User{}, err
		}
		return s.GetUser(ctx, u.ID)
	}

	if u.Name == "" {
		return User{}, fmt.Errorf("%w: user needs an id or a name", ErrInvalid)
	}
	var id int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE name = ? ORDER BY id LIMIT 1`, u.Name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO users (name, email, role) VALUES (?, ?, ?)`,
			u.Name, storage.NullableString(u.Email), storage.NullableString(u.Role),
		)
		if err != nil {
			return User{}, err
		}
		if id, err = res.LastInsertId(); err != nil {
			return User{}, err
		}
	} else if err != nil {
		return User{}, err
	}
	return s.GetUser(ctx, id)
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (User, error) {
	var (
		u     User
		email sql.NullString
		role  sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, name, email, role FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.Name, &email, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return User{}, err
	}
	u.Email, u.Role = email.String, role.String
	return u, nil
}

// ListUsers returns every known user ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, role FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []User
	for rows.Next() {
		var (
			u           User
			email, role sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Name, &email, &role); err != nil {
			return nil, err
		}
		u.Email, u.Role = email.String, role.String
		out = append(out, u)
	}
	return out, rows.Err()
}

// ─── Projects ────────────────────────────────────────────────────────────────

// ListProjects returns the projects user is a member of.
func (s *Store) ListProjects(ctx context.Context, user User) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, COALESCE(p.description, ''), p.owner_id, p.created_at
		FROM projects p
		JOIN project_members m ON m.project_id = p.id
		WHERE m.user_id = ?
		ORDER BY p.id`, user.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.OwnerID, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateProject creates a project owned by user, who becomes its first member.
func (s *Store) CreateProject(ctx context.Context, user User, in CreateProjectInput) (*Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalid)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	p := Project{Name: name, Description: strings.TrimSpace(in.Description), OwnerID: user.ID, CreatedAt: storage.Now()}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO projects (name, description, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		p.Name, storage.NullableString(p.Description), p.OwnerID, p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO project_members (project_id, user_id) VALUES (?, ?)`, p.ID, user.ID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &p, nil
}

// AddMember grants userID access to projectID. Only members may add members.
func (s *Store) AddMember(ctx context.Context, user User, projectID, userID int64) error {
	if err := s.checkProject(ctx, user, projectID); err != nil {
		return err
	}
	if _, err := s.GetUser(ctx, userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO project_members (project_id, user_id) VALUES (?, ?)`, projectID, userID)
	return err
}

// checkProject returns ErrNotFound for a missing project and ErrForbidden
// when user is not a member.
func (s *Store) checkProject(ctx context.Context, user User, projectID int64) error {
	var member int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(m.user_id)
		FROM projects p
		LEFT JOIN project_members m ON m.project_id = p.id AND m.user_id = ?
		WHERE p.id = ?
		GROUP BY p.id`, user.ID, projectID).Scan(&member)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("project %d: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if member == 0 {
		return fmt.Errorf("project %d: %w", projectID, ErrForbidden)
	}
	return nil
}

// ─── Sprints ─────────────────────────────────────────────────────────────────

// ListSprints returns sprints of projectID, or of all the user's projects
// when projectID is zero, optionally narrowed to one status.
func (s *Store) ListSprints(ctx context.Context, user User, projectID int64, status string) ([]Sprint, error) {
	query := `
		SELECT sp.id, sp.project_id, sp.name, sp.status,
		       COALESCE(sp.start_date, ''), COALESCE(sp.end_date, '')
		FROM sprints sp
		JOIN project_members m ON m.project_id = sp.project_id AND m.user_id = ?
		WHERE 1=1`
	args := []any{user.ID}

	if projectID != 0 {
		if err := s.checkProject(ctx, user, projectID); err != nil {
			return nil, err
		}
		query += " AND sp.project_id = ?"
		args = append(args, projectID)
	}
	if status != "" {
		query += " AND sp.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY sp.id"

	return s.querySprints(ctx, query, args...)
}

// CreateSprint adds a planned sprint to a project the user belongs to.
func (s *Store) CreateSprint(ctx context.Context, user User, in CreateSprintInput) (*Sprint, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: sprint name is required", ErrInvalid)
	}
	if err := validDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, user, in.ProjectID); err != nil {
		return nil, err
	}

	sp := Sprint{ProjectID: in.ProjectID, Name: name, Status: SprintPlanned, StartDate: in.StartDate, EndDate: in.EndDate}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sprints (project_id, name, status, start_date, end_date) VALUES (?, ?, ?, ?, ?)`,
		sp.ProjectID, sp.Name, sp.Status, storage.NullableString(sp.StartDate), storage.NullableString(sp.EndDate),
	)
	if err != nil {
		return nil, err
	}
	if sp.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &sp, nil
}

func (s *Store) getSprint(ctx context.Context, id int64) (*Sprint, error) {
	sprints, err := s.querySprints(ctx, `
		SELECT id, project_id, name, status, COALESCE(start_date, ''), COALESCE(end_date, '')
		FROM sprints WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(sprints) == 0 {
		return nil, fmt.Errorf("sprint %d: %w", id, ErrNotFound)
	}
	return &sprints[0], nil
}

func (s *Store) querySprints(ctx context.Context, query string, args ...any) ([]Sprint, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Sprint
	for rows.Next() {
		var sp Sprint
		if err := rows.Scan(&sp.ID, &sp.ProjectID, &sp.Name, &sp.Status, &sp.StartDate, &sp.EndDate); err != nil {
			return nil, err
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func validDates(start, end string) error {
	var from, to time.Time
	var err error
	if start != "" {
		if from, err = time.Parse(DateLayout, start); err != nil {
			return fmt.Errorf("%w: start date %q", ErrInvalid, start)
		}
	}
	if end != "" {
		if to, err = time.Parse(DateLayout, end); err != nil {
			return fmt.Errorf("%w: end date %q", ErrInvalid, end)
		}
	}
	if start != "" && end != "" && to.Before(from) {
		return fmt.Errorf("%w: sprint ends before it starts", ErrInvalid)
	}
	return nil
}

// ─── Tasks ───────────────────────────────────────────────────────────────────

const taskColumns = `
	t.id, t.project_id, t.sprint_id, t.title, COALESCE(t.description, ''),
	t.status, t.priority, t.assignee_id, t.creator_id, COALESCE(t.due_date, ''), t.created_at`

// ListTasks returns tasks of the user's projects matching filter.
func (s *Store) ListTasks(ctx context.Context, user User, filter TaskFilter) ([]Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks t
		JOIN project_members m ON m.project_id = t.project_id AND m.user_id = ?
		WHERE 1=1`
	args := []any{user.ID}

	if filter.ProjectID != 0 {
		query += " AND t.project_id = ?"
		args = append(args, filter.ProjectID)
	}
	if filter.SprintID != 0 {
		query += " AND t.sprint_id = ?"
		args = append(args, filter.SprintID)
	}
	if filter.Status != "" {
		query += " AND t.status = ?"
		args = append(args, filter.Status)
	}
	if filter.OnlyMine {
		query += " AND t.assignee_id = ?"
		args = append(args, user.ID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultTaskLimit
	}
	if limit > maxTaskLimit {
		limit = maxTaskLimit
	}
	query += " ORDER BY t.id LIMIT ?"
	args = append(args, limit)

	return s.queryTasks(ctx, query, args...)
}

// CreateTask creates a task in in.ProjectID, or in the user's most recent
// project when none is given.
func (s *Store) CreateTask(ctx context.Context, user User, in CreateTaskInput) (*Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: task title is required", ErrInvalid)
	}
	if in.DueDate != "" {
		if _, err := time.Parse(DateLayout, in.DueDate); err != nil {
			return nil, fmt.Errorf("%w: due date %q", ErrInvalid, in.DueDate)
		}
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	if !slices.Contains(Priorities, priority) {
		return nil, fmt.Errorf("%w: priority %q", ErrInvalid, priority)
	}

	projectID := in.ProjectID
	if projectID == 0 {
		var latest sql.NullInt64
		err := s.db.QueryRowContext(ctx,
			`SELECT MAX(project_id) FROM project_members WHERE user_id = ?`, user.ID).Scan(&latest)
		if err != nil {
			return nil, err
		}
		if !latest.Valid {
			return nil, fmt.Errorf("%w: no project to put the task in; create a project first", ErrInvalid)
		}
		projectID = latest.Int64
	} else if err := s.checkProject(ctx, user, projectID); err != nil {
		return nil, err
	}

	if in.SprintID != 0 {
		if err := s.checkSprintInProject(ctx, in.SprintID, projectID); err != nil {
			return nil, err
		}
	}

	assignee := in.AssigneeID
	if in.AssignToMe {
		assignee = user.ID
	}
	if assignee != 0 {
		if _, err := s.GetUser(ctx, assignee); err != nil {
			return nil, err
		}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (project_id, sprint_id, title, description, status, priority,
		                   assignee_id, creator_id, due_date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		projectID, storage.NullableInt(in.SprintID), title, storage.NullableString(strings.TrimSpace(in.Description)),
		StatusTodo, priority, storage.NullableInt(assignee), user.ID,
		storage.NullableString(in.DueDate), storage.Now(),
	)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.getTask(ctx, id)
}

// UpdateTaskStatus moves a task to status.
func (s *Store) UpdateTaskStatus(ctx context.Context, user User, taskID int64, status string) (*Task, error) {
	if !slices.Contains(TaskStatuses, status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalid, status)
	}
	if _, err := s.accessibleTask(ctx, user, taskID); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET status = ? WHERE id = ?`, status, taskID); err != nil {
		return nil, err
	}
	return s.getTask(ctx, taskID)
}

// AssignTask sets the assignee of a task.
func (s *Store) AssignTask(ctx context.Context, user User, taskID, assigneeID int64) (*Task, error) {
	if _, err := s.accessibleTask(ctx, user, taskID); err != nil {
		return nil, err
	}
	if _, err := s.GetUser(ctx, assigneeID); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET assignee_id = ? WHERE id = ?`, assigneeID, taskID); err != nil {
		return nil, err
	}
	return s.getTask(ctx, taskID)
}

// MoveTaskToSprint places a task in a sprint of the same project.
func (s *Store) MoveTaskToSprint(ctx context.Context, user User, taskID, sprintID int64) (*Task, error) {
	t, err := s.accessibleTask(ctx, user, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSprintInProject(ctx, sprintID, t.ProjectID); err != nil {
		return nil, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE tasks SET sprint_id = ? WHERE id = ?`, sprintID, taskID); err != nil {
		return nil, err
	}
	return s.getTask(ctx, taskID)
}

func (s *Store) checkSprintInProject(ctx context.Context, sprintID, projectID int64) error {
	sp, err := s.getSprint(ctx, sprintID)
	if err != nil {
		return err
	}
	if sp.ProjectID != projectID {
		return fmt.Errorf("%w: sprint %d belongs to another project", ErrInvalid, sprintID)
	}
	return nil
}

func (s *Store) accessibleTask(ctx context.Context, user User, taskID int64) (*Task, error) {
	t, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.checkProject(ctx, user, t.ProjectID); err != nil {
		return nil, fmt.Errorf("task %d: %w", taskID, ErrForbidden)
	}
	return t, nil
}

func (s *Store) getTask(ctx context.Context, id int64) (*Task, error) {
	tasks, err := s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks t WHERE t.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, fmt.Errorf("task %d: %w", id, ErrNotFound)
	}
	return &tasks[0], nil
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Task
	for rows.Next() {
		var (
			t        Task
			sprint   sql.NullInt64
			assignee sql.NullInt64
		)
		if err := rows.Scan(&t.ID, &t.ProjectID, &sprint, &t.Title, &t.Description,
			&t.Status, &t.Priority, &assignee, &t.CreatorID, &t.DueDate, &t.CreatedAt); err != nil {
			return nil, err
		}
		if sprint.Valid {
			t.SprintID = &sprint.Int64
		}
		if assignee.Valid {
			t.AssigneeID = &assignee.Int64
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ─── Comments ────────────────────────────────────────────────────────────────

// AddComment appends a comment to a task the user can see.
func (s *Store) AddComment(ctx context.Context, user User, taskID int64, body string) (*Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment text is required", ErrInvalid)
	}
	if _, err := s.accessibleTask(ctx, user, taskID); err != nil {
		return nil, err
	}

	c := Comment{TaskID: taskID, AuthorID: user.ID, Body: body, CreatedAt: storage.Now()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (task_id, author_id, body, created_at) VALUES (?, ?, ?, ?)`,
		c.TaskID, c.AuthorID, c.Body, c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return nil, err
	}
	return &c, nil
}

// ListComments returns the comments of a task in creation order.
func (s *Store) ListComments(ctx context.Context, user User, taskID int64) ([]Comment, error) {
	if _, err := s.accessibleTask(ctx, user, taskID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, task_id, author_id, body, created_at FROM comments WHERE task_id = ? ORDER BY id`, taskID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ─── Directory ───────────────────────────────────────────────────────────────

// ProjectOverviews returns the user's projects with their sprints.
func (s *Store) ProjectOverviews(ctx context.Context, user User) ([]ProjectOverview, error) {
	projects, err := s.ListProjects(ctx, user)
	if err != nil {
		return nil, err
	}
	sprints, err := s.ListSprints(ctx, user, 0, "")
	if err != nil {
		return nil, err
	}

	byProject := make(map[int64][]Sprint, len(projects))
	for _, sp := range sprints {
		byProject[sp.ProjectID] = append(byProject[sp.ProjectID], sp)
	}
	out := make([]ProjectOverview, 0, len(projects))
	for _, p := range projects {
		out = append(out, ProjectOverview{Project: p, Sprints: byProject[p.ID]})
	}
	return out, nil
}

// StatusCounts returns how many of the user's visible tasks are in each
// status, in workflow order. Statuses with no tasks report zero.
func (s *Store) StatusCounts(ctx context.Context, user User) ([]StatusCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.status, COUNT(*)
		FROM tasks t
		JOIN project_members m ON m.project_id = t.project_id AND m.user_id = ?
		GROUP BY t.status`, user.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int, len(TaskStatuses))
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]StatusCount, 0, len(TaskStatuses))
	for _, st := range TaskStatuses {
		out = append(out, StatusCount{Status: st, Count: counts[st]})
	}
	return out, nil
}
