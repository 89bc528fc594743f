package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"goodfit/internal/access"
	"goodfit/internal/booking"
	"goodfit/internal/model"

	"github.com/gabriel-vasile/mimetype"
)

type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

var (
	errSignInRequired = errors.New("войдите, чтобы продолжить: goodfit login <email или телефон>")
	errNotPermitted   = errors.New("недостаточно прав для этой команды")
)

// command is one subcommand. An empty route needs no session.
type command struct {
	name  string
	usage string
	route access.Route
	run   func(ctx context.Context, a *app, args []string) error
}

var commands []command

// init fills the table; cmdAdmin reads it, so a static initializer would be a cycle.
func init() {
	commands = []command{
		{"login", "login <email|телефон>", "", cmdLogin},
		{"register", "register -name <имя> <email|телефон>", "", cmdRegister},
		{"verify", "verify <email|телефон> <код>", "", cmdVerify},
		{"logout", "logout", "", cmdLogout},
		{"whoami", "whoami", access.RouteProfile, cmdWhoami},
		{"gyms", "gyms [-city город] [-category a,b] [-q текст]", access.RouteGyms, cmdGyms},
		{"gym", "gym <id>", access.RouteGymDetail, cmdGym},
		{"subscriptions", "subscriptions", access.RouteSubscriptions, cmdSubscriptions},
		{"bookings", "bookings", access.RouteBookings, cmdBookings},
		{"book", "book [-gym id] <class-id>", access.RouteBookings, cmdBook},
		{"cancel", "cancel <booking-id>", access.RouteBookings, cmdCancel},
		{"admin", "admin", access.RouteAdmin, cmdAdmin},
		{"admin-users", "admin-users", access.RouteAdminUsers, cmdAdminUsers},
		{"admin-bookings", "admin-bookings", access.RouteAdminBookings, cmdAdminBookings},
		{"admin-gym-create", "admin-gym-create -name <имя> -city <город> [-address a] [-category a,b]", access.RouteAdminGyms, cmdAdminGymCreate},
		{"admin-gym-image", "admin-gym-image <gym-id> <файл>", access.RouteAdminGyms, cmdAdminGymImage},
		{"admin-gym-update", "admin-gym-update [-name n] [-city c] [-address a] [-description d] [-category a,b] <gym-id>", access.RouteAdminGyms, cmdAdminGymUpdate},
		{"admin-gym-delete", "admin-gym-delete <gym-id>", access.RouteAdminGyms, cmdAdminGymDelete},
		{"admin-class-create", "admin-class-create -gym <id> -title <t> -start <2006-01-02T15:04> -minutes <n> -capacity <n> [-instructor i] [-category c] [-description d]", access.RouteAdminClasses, cmdAdminClassCreate},
		{"admin-class-delete", "admin-class-delete <class-id>", access.RouteAdminClasses, cmdAdminClassDelete},
	}
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: goodfit <command> [args]")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.usage, rolesLabel(c.route))
	}
	tw.Flush()
}

// rolesLabel names the roles a route needs, or nothing for open routes.
func rolesLabel(route access.Route) string {
	roles, ok := access.Roles(route)
	if !ok || len(roles) == 0 {
		return ""
	}
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r))
	}
	return "[" + strings.Join(names, ", ") + "]"
}

// authorize checks the signed-in role against the route table.
func authorize(route access.Route, role model.Role, signedIn bool) error {
	if route == "" || access.Public(route) {
		return nil
	}
	if !signedIn {
		return errSignInRequired
	}
	if !access.Allowed(route, role) {
		return errNotPermitted
	}
	return nil
}

func (a *app) dispatch(ctx context.Context, cmd command, args []string) error {
	// Initialization errors leave the user signed out; public commands still run.
	_ = a.store.Initialize(ctx)

	st := a.store.Snapshot()
	if err := authorize(cmd.route, st.Role, st.SignedIn()); err != nil {
		return err
	}
	return cmd.run(ctx, a, args)
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parse(fs *flag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, &usageError{msg: fs.Name() + ": " + err.Error()}
	}
	if fs.NArg() != positional {
		return nil, &usageError{msg: fmt.Sprintf("%s: ожидается аргументов: %d", fs.Name(), positional)}
	}
	return fs.Args(), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func cmdLogin(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlags("login"), args, 1)
	if err != nil {
		return err
	}
	if err := a.store.Login(ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Код отправлен. Подтвердите: goodfit verify %s <код>\n", rest[0])
	return nil
}

func cmdRegister(ctx context.Context, a *app, args []string) error {
	fs := newFlags("register")
	name := fs.String("name", "", "display name")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}
	if strings.TrimSpace(*name) == "" {
		return &usageError{msg: "usage: goodfit register -name <имя> <email|телефон>"}
	}
	if err := a.store.Register(ctx, *name, rest[0]); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Код отправлен. Подтвердите: goodfit verify %s <код>\n", rest[0])
	return nil
}

func cmdVerify(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlags("verify"), args, 2)
	if err != nil {
		return err
	}
	user, err := a.store.Verify(ctx, rest[0], rest[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Добро пожаловать, %s (%s)\n", displayName(user), user.Role)
	return nil
}

func cmdLogout(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlags("logout"), args, 0); err != nil {
		return err
	}
	if err := a.store.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Вы вышли из аккаунта")
	return nil
}

func cmdWhoami(_ context.Context, a *app, args []string) error {
	if _, err := parse(newFlags("whoami"), args, 0); err != nil {
		return err
	}
	user := a.store.Snapshot().CurrentUser
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "id\t%s\n", user.ID)
	fmt.Fprintf(w, "name\t%s\n", user.Name)
	fmt.Fprintf(w, "email\t%s\n", user.UserEmail())
	fmt.Fprintf(w, "phone\t%s\n", user.UserPhone())
	fmt.Fprintf(w, "role\t%s\n", user.Role)
	return w.Flush()
}

func cmdGyms(ctx context.Context, a *app, args []string) error {
	fs := newFlags("gyms")
	city := fs.String("city", "", "city")
	categories := fs.String("category", "", "comma separated categories")
	query := fs.String("q", "", "search text")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}

	gyms, err := a.bookings.ListGyms(ctx, booking.Criteria{
		City:       *city,
		Categories: splitList(*categories),
		SearchText: *query,
	})
	if err != nil {
		return err
	}
	if len(gyms) == 0 {
		fmt.Fprintln(a.out, "Ничего не найдено")
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCITY\tCATEGORIES\tRATING")
	for _, g := range gyms {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1f\n", g.ID, g.Name, g.City, strings.Join(g.Categories, ", "), g.Rating)
	}
	return w.Flush()
}

func cmdGym(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlags("gym"), args, 1)
	if err != nil {
		return err
	}
	gym, err := a.bookings.GetGym(ctx, rest[0])
	if err != nil {
		return err
	}
	if gym == nil {
		return fmt.Errorf("зал %s не найден", rest[0])
	}
	classes, err := a.bookings.ListClasses(ctx, gym.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s (%s, %s)\n", gym.Name, gym.City, gym.Address)
	if gym.Description != "" {
		fmt.Fprintln(a.out, gym.Description)
	}
	fmt.Fprintf(a.out, "Часы работы: %s-%s\n\n", gym.WorkingHours.Open, gym.WorkingHours.Close)

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tTITLE\tSTART\tINSTRUCTOR\tSEATS")
	for _, c := range classes {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\n",
			c.ID, c.Title, c.StartTime.Local().Format("02.01 15:04"), c.Instructor, c.BookedCount, c.Capacity)
	}
	return w.Flush()
}

func cmdSubscriptions(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlags("subscriptions"), args, 0); err != nil {
		return err
	}
	plans, err := a.bookings.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPLAN\tDAYS\tPRICE\t")
	for _, p := range plans {
		popular := ""
		if p.IsPopular {
			popular = "★"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d.%02d ₽\t%s\n", p.ID, p.Name, p.DurationDays, p.Price/100, p.Price%100, popular)
	}
	return w.Flush()
}

func printBookings(out io.Writer, bookings []model.Booking) error {
	if len(bookings) == 0 {
		fmt.Fprintln(out, "Бронирований нет")
		return nil
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLASS\tGYM\tSTATUS\tBOOKED AT")
	for _, b := range bookings {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", b.ID, b.ClassID, b.GymID, b.Status, b.DateTime.Local().Format("02.01.2006 15:04"))
	}
	return w.Flush()
}

func cmdBookings(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlags("bookings"), args, 0); err != nil {
		return err
	}
	bookings, err := a.bookings.ListBookings(ctx)
	if err != nil {
		return err
	}
	return printBookings(a.out, bookings)
}

func cmdBook(ctx context.Context, a *app, args []string) error {
	fs := newFlags("book")
	gymID := fs.String("gym", "", "gym id (defaults to the class's gym)")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	user := a.store.Snapshot().CurrentUser
	res, err := a.bookings.BookClass(ctx, user.ID, rest[0], *gymID)
	if err != nil {
		return err
	}
	if !res.OK {
		return res.Reason
	}
	fmt.Fprintln(a.out, res.Message)
	return nil
}

func cmdCancel(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlags("cancel"), args, 1)
	if err != nil {
		return err
	}

	user := a.store.Snapshot().CurrentUser
	res, err := a.bookings.CancelBooking(ctx, user.ID, rest[0])
	if err != nil {
		return err
	}
	if !res.OK {
		return res.Reason
	}
	fmt.Fprintln(a.out, res.Message)
	return nil
}

// cmdAdmin lists the admin commands the signed-in role may run.
func cmdAdmin(_ context.Context, a *app, args []string) error {
	if _, err := parse(newFlags("admin"), args, 0); err != nil {
		return err
	}
	role := a.store.Snapshot().Role
	fmt.Fprintf(a.out, "Панель управления (%s):\n", role)
	for _, c := range commands {
		if c.route == access.RouteAdmin || !strings.HasPrefix(string(c.route), string(access.RouteAdmin)+".") {
			continue
		}
		if access.Allowed(c.route, role) {
			fmt.Fprintln(a.out, "  goodfit "+c.usage)
		}
	}
	return nil
}

func cmdAdminUsers(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlags("admin-users"), args, 0); err != nil {
		return err
	}
	users, err := a.client.ListUsers(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.UserEmail(), u.UserPhone(), u.Role)
	}
	return w.Flush()
}

func cmdAdminBookings(ctx context.Context, a *app, args []string) error {
	if _, err := parse(newFlags("admin-bookings"), args, 0); err != nil {
		return err
	}
	bookings, err := a.client.ListAllBookings(ctx)
	if err != nil {
		return err
	}
	return printBookings(a.out, bookings)
}

func cmdAdminGymCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("admin-gym-create")
	name := fs.String("name", "", "gym name")
	city := fs.String("city", "", "city")
	address := fs.String("address", "", "street address")
	categories := fs.String("category", "", "comma separated categories")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *name == "" || *city == "" {
		return &usageError{msg: "usage: goodfit admin-gym-create -name <имя> -city <город>"}
	}

	gym := &model.Gym{Name: *name, City: *city, Address: *address, Categories: splitList(*categories)}
	if user := a.store.Snapshot().CurrentUser; user.Role == model.RolePartner {
		gym.OwnerID = &user.ID
	}
	created, err := a.client.InsertGym(ctx, gym)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Зал создан: %s\n", created.ID)
	return nil
}

func cmdAdminGymImage(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlags("admin-gym-image"), args, 2)
	if err != nil {
		return err
	}
	gymID, path := rest[0], rest[1]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	contentType, err := detectContentType(f, path)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return &usageError{msg: fmt.Sprintf("admin-gym-image: %s не является изображением (%s)", filepath.Base(path), contentType)}
	}
	upload, err := a.client.GymImageUploadURL(ctx, gymID, filepath.Base(path), contentType)
	if err != nil {
		return err
	}
	if err := a.client.UploadObject(ctx, upload.UploadURL, contentType, f); err != nil {
		return err
	}
	gym, err := a.client.AttachGymImage(ctx, gymID, upload.ObjectURL)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Изображение добавлено, всего: %d\n", len(gym.Images))
	return nil
}

func cmdAdminGymUpdate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("admin-gym-update")
	fields := map[string]*string{
		"name":        fs.String("name", "", "gym name"),
		"city":        fs.String("city", "", "city"),
		"address":     fs.String("address", "", "street address"),
		"description": fs.String("description", "", "description"),
	}
	categories := fs.String("category", "", "comma separated categories")
	rest, err := parse(fs, args, 1)
	if err != nil {
		return err
	}

	update := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		if v, ok := fields[f.Name]; ok {
			update[f.Name] = *v
		}
	})
	if *categories != "" {
		update["categories"] = splitList(*categories)
	}
	if len(update) == 0 {
		return &usageError{msg: "admin-gym-update: нечего обновлять"}
	}

	gym, err := a.client.UpdateGym(ctx, rest[0], update)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Зал обновлён: %s\n", gym.Name)
	return nil
}

// detectContentType sniffs the first bytes of f and rewinds it. The file
// extension is used only when the content is not recognized.
func detectContentType(f io.ReadSeeker, path string) (string, error) {
	buf := make([]byte, 512)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind image: %w", err)
	}

	if n > 0 {
		if mt := mimetype.Detect(buf[:n]); mt != nil && !mt.Is("application/octet-stream") {
			return mt.String(), nil
		}
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return byExt, nil
	}
	return "application/octet-stream", nil
}

func cmdAdminGymDelete(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlags("admin-gym-delete"), args, 1)
	if err != nil {
		return err
	}
	if err := a.client.DeleteGym(ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Зал удалён")
	return nil
}

const classTimeLayout = "2006-01-02T15:04"

func cmdAdminClassCreate(ctx context.Context, a *app, args []string) error {
	fs := newFlags("admin-class-create")
	gymID := fs.String("gym", "", "gym id")
	title := fs.String("title", "", "class title")
	start := fs.String("start", "", "local start time, "+classTimeLayout)
	minutes := fs.Int("minutes", 60, "duration in minutes")
	capacity := fs.Int("capacity", 0, "number of seats")
	instructor := fs.String("instructor", "", "instructor")
	category := fs.String("category", "", "category")
	description := fs.String("description", "", "description")
	if _, err := parse(fs, args, 0); err != nil {
		return err
	}
	if *gymID == "" || *title == "" || *start == "" || *capacity <= 0 || *minutes <= 0 {
		return &usageError{msg: "usage: goodfit admin-class-create -gym <id> -title <t> -start <" + classTimeLayout + "> -capacity <n>"}
	}
	startTime, err := time.ParseInLocation(classTimeLayout, *start, time.Local)
	if err != nil {
		return &usageError{msg: "admin-class-create: неверное время начала: " + *start}
	}

	created, err := a.client.InsertClass(ctx, &model.FitnessClass{
		GymID:       *gymID,
		Title:       *title,
		Description: *description,
		Instructor:  *instructor,
		StartTime:   startTime.UTC(),
		EndTime:     startTime.Add(time.Duration(*minutes) * time.Minute).UTC(),
		Capacity:    *capacity,
		Category:    *category,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Занятие создано: %s\n", created.ID)
	return nil
}

func cmdAdminClassDelete(ctx context.Context, a *app, args []string) error {
	rest, err := parse(newFlags("admin-class-delete"), args, 1)
	if err != nil {
		return err
	}
	if err := a.client.DeleteClass(ctx, rest[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Занятие удалено")
	return nil
}

func displayName(u *model.User) string {
	switch {
	case u.Name != "":
		return u.Name
	case u.UserEmail() != "":
		return u.UserEmail()
	}
	return u.UserPhone()
}
