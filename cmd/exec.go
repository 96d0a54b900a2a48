package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"bus-ticket/config"
	"bus-ticket/internal/api"
	"bus-ticket/internal/auth"
	"bus-ticket/internal/payment"
	"bus-ticket/internal/realtime"
	"bus-ticket/internal/seatmap"
	"bus-ticket/internal/store"
	"bus-ticket/models"
	"bus-ticket/monitoring"
	"bus-ticket/utils"
)

// app wires the services behind the subcommands.
type app struct {
	cfg *config.Config
	gw  *auth.Gateway

	stations      *api.StationService
	trips         *api.TripService
	tickets       *api.TicketService
	payments      *api.PaymentService
	notifications *api.NotificationService
	users         *api.UserService
	help          *api.HelpService
}

func Start() error {
	// Load .env if present; real deployments set the environment directly
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	cfg := config.LoadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}

	gw := auth.New(&auth.Config{
		BaseURL:        cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		RefreshTimeout: cfg.RefreshTimeout,
	}, st)
	if err := gw.Load(ctx); err != nil {
		return fmt.Errorf("cmd: load session: %w", err)
	}

	var cache *api.SnapshotCache
	if cfg.RedisURL != "" {
		redisClient, err := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			slog.Warn("snapshot cache unavailable, continuing without it", "error", err)
		} else if err := utils.RedisHealthCheck(redisClient); err != nil {
			slog.Warn("snapshot cache unhealthy, continuing without it", "error", err)
			redisClient.Close()
		} else {
			defer redisClient.Close()
			cache = api.NewSnapshotCache(redisClient, cfg.CacheTTL)
		}
	}

	if cfg.EnableMetrics {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", monitoring.Handler())
			log.Printf("Metrics listening on :%s", cfg.MetricsPort)
			if err := http.ListenAndServe(":"+cfg.MetricsPort, mux); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	client := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	a := &app{
		cfg:           cfg,
		gw:            gw,
		stations:      api.NewStationService(client, cache),
		trips:         api.NewTripService(client, cache),
		tickets:       api.NewTicketService(gw),
		payments:      api.NewPaymentService(gw),
		notifications: api.NewNotificationService(gw),
		users:         api.NewUserService(client, gw),
		help:          api.NewHelpService(gw),
	}

	args := os.Args[1:]
	if len(args) == 0 {
		usage()
		return nil
	}

	switch args[0] {
	case "login":
		return a.login(ctx, args[1:])
	case "logout":
		a.gw.Logout(ctx)
		fmt.Println("Signed out.")
		return nil
	case "register":
		return a.register(ctx, args[1:])
	case "stations":
		return a.listStations(ctx)
	case "trips":
		return a.searchTrips(ctx, args[1:])
	case "seats":
		return a.showSeats(ctx, args[1:])
	case "book":
		return a.book(ctx, args[1:])
	case "cancel":
		return a.cancel(ctx, args[1:])
	case "pay":
		return a.pay(ctx, args[1:])
	case "tickets":
		return a.listTickets(ctx)
	case "notifications":
		return a.showNotifications(ctx, args[1:])
	case "profile":
		return a.showProfile(ctx, args[1:])
	case "passwd":
		return a.changePassword(ctx, args[1:])
	case "forgot":
		return a.forgotPassword(ctx, args[1:])
	case "reset":
		return a.resetPassword(ctx, args[1:])
	case "support":
		return a.support(ctx, args[1:])
	case "listen":
		return a.listen(ctx)
	default:
		usage()
		return fmt.Errorf("cmd: unknown command %q", args[0])
	}
}

func usage() {
	fmt.Println(`Usage: bus-ticket <command> [flags]

Commands:
  login          sign in with phone and password
  logout         sign out and clear stored credentials
  register       create an account
  stations       list stations
  trips          search trips between two stations
  seats          show the seat map of a trip
  book           book seats on a trip
  cancel         cancel a ticket
  pay            pay for booked tickets
  tickets        list your tickets
  notifications  list your notifications, -read <id> to mark one read
  profile        show your profile; -name/-email/-address to edit,
                 -avatar <file> to upload a picture
  passwd         change your password
  forgot         request a password-reset OTP
  reset          reset your password with the OTP
  support        read the support chat, -send to write a message
  listen         stream realtime events`)
}

func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.CredentialsSecret == "" {
		slog.Warn("CREDENTIALS_SECRET not set, session will not survive this run")
		return store.NewMemStore(), nil
	}
	st, err := store.NewFileStore(cfg.CredentialsPath, cfg.CredentialsSecret)
	if err != nil {
		return nil, fmt.Errorf("cmd: open credential store: %w", err)
	}
	return st, nil
}

func (a *app) requireUser() (*models.User, error) {
	user := a.gw.User()
	if user == nil {
		return nil, errors.New("cmd: not signed in, run `bus-ticket login` first")
	}
	return user, nil
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	phone := fs.String("phone", "", "account phone number")
	password := fs.String("password", "", "account password")
	fs.Parse(args)

	if *phone == "" || *password == "" {
		return errors.New("cmd: login requires -phone and -password")
	}

	if err := a.gw.SignIn(ctx, *phone, *password); err != nil {
		return fmt.Errorf("cmd: login: %w", err)
	}
	fmt.Printf("Signed in as %s.\n", a.gw.User().Name)
	return nil
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	name := fs.String("name", "", "display name")
	phone := fs.String("phone", "", "phone number")
	password := fs.String("password", "", "password")
	fs.Parse(args)

	if *name == "" || *phone == "" || *password == "" {
		return errors.New("cmd: register requires -name, -phone and -password")
	}

	if err := a.users.Register(ctx, *name, *phone, *password); err != nil {
		return err
	}
	fmt.Println("Account created. Sign in with `bus-ticket login`.")
	return nil
}

func (a *app) listStations(ctx context.Context) error {
	stations, err := a.stations.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range stations {
		fmt.Printf("%-26s %s\n", s.ID, s.Name)
	}
	return nil
}

func (a *app) searchTrips(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("trips", flag.ExitOnError)
	from := fs.String("from", "", "start station id")
	to := fs.String("to", "", "end station id")
	date := fs.String("date", "", "travel date, YYYY-MM-DD")
	fs.Parse(args)

	if *from == "" || *to == "" || *date == "" {
		return errors.New("cmd: trips requires -from, -to and -date")
	}

	trips, err := a.trips.Search(ctx, *from, *to, *date)
	if err != nil {
		return err
	}
	if len(trips) == 0 {
		fmt.Println("No trips found.")
		return nil
	}
	for _, t := range trips {
		fmt.Printf("%-26s %s -> %s  depart %s  %s  %d seats free\n",
			t.ID,
			t.StartLocation.Name, t.EndLocation.Name,
			t.DepartureTime.Format("15:04"),
			t.Price.StringFixed(0),
			t.AvailableSeats,
		)
	}
	return nil
}

func (a *app) showSeats(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("seats", flag.ExitOnError)
	tripID := fs.String("trip", "", "trip id")
	fs.Parse(args)

	if *tripID == "" {
		return errors.New("cmd: seats requires -trip")
	}

	trip, err := a.trips.Detail(ctx, *tripID)
	if err != nil {
		return err
	}

	floor1, floor2 := seatmap.FloorPlan(trip.Bus.SeatCapacity, trip.BookedPhoneNumbers)
	fmt.Println("Floor 1")
	fmt.Println(renderFloor(floor1))
	fmt.Println("Floor 2")
	fmt.Println(renderFloor(floor2))
	fmt.Println("[label*] = booked")
	return nil
}

func renderFloor(positions []seatmap.Position) string {
	var b strings.Builder
	row := 0
	for _, p := range positions {
		if p.Row != row {
			if row != 0 {
				b.WriteByte('\n')
			}
			row = p.Row
		}
		mark := " "
		if p.Booked {
			mark = "*"
		}
		fmt.Fprintf(&b, "[%s%s] ", p.Label, mark)
	}
	return b.String()
}

func (a *app) book(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("book", flag.ExitOnError)
	tripID := fs.String("trip", "", "trip id")
	seats := fs.String("seats", "", "comma-separated seat indexes, e.g. 3,4")
	fs.Parse(args)

	user, err := a.requireUser()
	if err != nil {
		return err
	}
	if *tripID == "" || *seats == "" {
		return errors.New("cmd: book requires -trip and -seats")
	}

	seatNumbers, err := parseSeats(*seats)
	if err != nil {
		return err
	}

	result, err := a.tickets.Book(ctx, *tripID, seatNumbers, user.Phone)
	if err != nil {
		return err
	}

	for _, seat := range result.BookedSeats {
		fmt.Printf("Booked seat %d, ticket %s\n", seat.SeatNumber, seat.TicketID)
	}
	for _, seat := range result.FailedSeats {
		fmt.Printf("Seat %d was already taken\n", seat)
	}
	fmt.Printf("%d of %d seats booked. Pay with `bus-ticket pay`.\n", result.TotalBooked, result.TotalRequested)
	return nil
}

func (a *app) cancel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("cancel", flag.ExitOnError)
	ticketID := fs.String("ticket", "", "ticket id")
	fs.Parse(args)

	if _, err := a.requireUser(); err != nil {
		return err
	}
	if *ticketID == "" {
		return errors.New("cmd: cancel requires -ticket")
	}

	if err := a.tickets.Cancel(ctx, *ticketID); err != nil {
		return err
	}
	fmt.Printf("Ticket %s cancelled.\n", *ticketID)
	return nil
}

func parseSeats(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	seats := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("cmd: bad seat number %q: %w", part, err)
		}
		seats = append(seats, n)
	}
	return seats, nil
}

func (a *app) pay(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("pay", flag.ExitOnError)
	ticketIDs := fs.String("tickets", "", "comma-separated ticket ids")
	amount := fs.String("amount", "", "total amount to charge")
	provider := fs.String("provider", "MOMO", "payment provider: MOMO or VNPAY")
	fs.Parse(args)

	if _, err := a.requireUser(); err != nil {
		return err
	}
	if *ticketIDs == "" || *amount == "" {
		return errors.New("cmd: pay requires -tickets and -amount")
	}

	total, err := decimal.NewFromString(*amount)
	if err != nil {
		return fmt.Errorf("cmd: bad amount %q: %w", *amount, err)
	}

	ids := strings.Split(*ticketIDs, ",")
	orderID := api.OrderID(ids)

	listener, err := payment.NewReturnListener(a.cfg.PaymentReturnPort)
	if err != nil {
		return err
	}
	defer listener.Close()
	returnURL := listener.Start()
	slog.Info("payment return listener ready", "url", returnURL)

	session, err := a.payments.Create(ctx, models.PaymentRequest{
		Amount:    total,
		OrderID:   orderID,
		OrderInfo: fmt.Sprintf("bus tickets %s", orderID),
		Provider:  *provider,
	})
	if err != nil {
		return err
	}

	fmt.Println("Open this URL in your browser to pay:")
	fmt.Println(session.PaymentURL)
	fmt.Println("Waiting for the payment to complete...")

	result, err := listener.Wait(ctx)
	if err != nil {
		return fmt.Errorf("cmd: waiting for payment: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("cmd: payment failed at %s (code %s)", result.Provider, result.Code)
	}

	for _, ticketID := range api.SplitOrderID(result.OrderID) {
		if err := a.tickets.MarkPaid(ctx, ticketID, result.Provider); err != nil {
			return err
		}
	}
	fmt.Println("Payment complete, tickets are paid.")
	return nil
}

func (a *app) listTickets(ctx context.Context) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	tickets, err := a.tickets.ListMine(ctx)
	if err != nil {
		return err
	}
	if len(tickets) == 0 {
		fmt.Println("No tickets yet.")
		return nil
	}

	for _, t := range tickets {
		pos := seatmap.Resolve(t.SeatNumber, t.Trip.Bus.SeatCapacity, nil)
		fmt.Printf("%-26s %s -> %s  seat %-7s depart %s  %s/%s\n",
			t.ID,
			t.Trip.StartLocation.Name, t.Trip.EndLocation.Name,
			pos.Label,
			t.Trip.DepartureTime.Format("2006-01-02 15:04"),
			t.PaymentStatus, t.Status,
		)
	}
	return nil
}

func (a *app) showNotifications(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("notifications", flag.ExitOnError)
	markRead := fs.String("read", "", "notification id to mark as read")
	fs.Parse(args)

	user, err := a.requireUser()
	if err != nil {
		return err
	}

	if *markRead != "" {
		if err := a.notifications.MarkRead(ctx, *markRead); err != nil {
			return err
		}
		fmt.Println("Marked as read.")
		return nil
	}

	notifications, err := a.notifications.List(ctx, user.ID)
	if err != nil {
		return err
	}
	for _, n := range notifications {
		read := " "
		if n.IsRead {
			read = "r"
		}
		fmt.Printf("[%s] %s  %s: %s\n", read, n.CreatedAt.Format("2006-01-02 15:04"), n.Title, n.Message)
	}
	return nil
}

func (a *app) showProfile(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profile", flag.ExitOnError)
	name := fs.String("name", "", "new display name")
	email := fs.String("email", "", "new email address")
	address := fs.String("address", "", "new postal address")
	avatar := fs.String("avatar", "", "image file to upload as the profile picture")
	fs.Parse(args)

	if _, err := a.requireUser(); err != nil {
		return err
	}

	if *name != "" || *email != "" || *address != "" {
		// overlay the changed fields on the current profile so an unset
		// flag doesn't clear its field
		current, err := a.users.Profile(ctx)
		if err != nil {
			return err
		}
		if *name == "" {
			*name = current.Name
		}
		if *email == "" {
			*email = current.Email
		}
		if *address == "" {
			*address = current.Address
		}

		updated, err := a.users.UpdateProfile(ctx, *name, *email, *address)
		if err != nil {
			return err
		}
		fmt.Printf("Profile updated: %s <%s> %s\n", updated.Name, updated.Email, updated.Address)
		return nil
	}

	if *avatar != "" {
		f, err := os.Open(*avatar)
		if err != nil {
			return fmt.Errorf("cmd: open avatar: %w", err)
		}
		defer f.Close()
		if err := a.users.UploadAvatar(ctx, *avatar, f); err != nil {
			return err
		}
		fmt.Println("Avatar updated.")
		return nil
	}

	user, err := a.users.Profile(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Name:    %s\nPhone:   %s\nEmail:   %s\nAddress: %s\n",
		user.Name, user.Phone, user.Email, user.Address)
	return nil
}

func (a *app) changePassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("passwd", flag.ExitOnError)
	oldPassword := fs.String("old", "", "current password")
	newPassword := fs.String("new", "", "new password")
	fs.Parse(args)

	if _, err := a.requireUser(); err != nil {
		return err
	}
	if *oldPassword == "" || *newPassword == "" {
		return errors.New("cmd: passwd requires -old and -new")
	}

	if err := a.users.ChangePassword(ctx, *oldPassword, *newPassword); err != nil {
		return err
	}
	fmt.Println("Password changed.")
	return nil
}

func (a *app) forgotPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("forgot", flag.ExitOnError)
	phone := fs.String("phone", "", "account phone number")
	fs.Parse(args)

	if *phone == "" {
		return errors.New("cmd: forgot requires -phone")
	}

	if err := a.users.RequestPasswordReset(ctx, *phone); err != nil {
		return err
	}
	fmt.Println("OTP sent. Finish with `bus-ticket reset`.")
	return nil
}

func (a *app) resetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	phone := fs.String("phone", "", "account phone number")
	otp := fs.String("otp", "", "one-time code from the OTP message")
	password := fs.String("password", "", "new password")
	fs.Parse(args)

	if *phone == "" || *otp == "" || *password == "" {
		return errors.New("cmd: reset requires -phone, -otp and -password")
	}

	if err := a.users.ResetPassword(ctx, *phone, *otp, *password); err != nil {
		return err
	}
	fmt.Println("Password reset. Sign in with `bus-ticket login`.")
	return nil
}

func (a *app) support(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("support", flag.ExitOnError)
	send := fs.String("send", "", "message to send to support")
	fs.Parse(args)

	user, err := a.requireUser()
	if err != nil {
		return err
	}

	thread, err := a.help.Thread(ctx, user.ID)
	if err != nil {
		return err
	}

	if *send != "" {
		if thread == nil {
			if thread, err = a.help.Create(ctx, *send); err != nil {
				return err
			}
			fmt.Println("Support chat opened.")
			return nil
		}
		if err := a.help.Send(ctx, thread.ID, *send); err != nil {
			return err
		}
		fmt.Println("Sent.")
		return nil
	}

	if thread == nil {
		fmt.Println("No support chat yet. Start one with -send.")
		return nil
	}

	messages, err := a.help.Messages(ctx, thread.ID)
	if err != nil {
		return err
	}
	for _, m := range messages {
		who := "staff"
		if m.SenderID == user.ID {
			who = "you"
		}
		fmt.Printf("%-5s %s\n", who, m.Content)
	}
	return nil
}

func (a *app) listen(ctx context.Context) error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}
	if a.cfg.PubNubSubscribeKey == "" {
		return errors.New("cmd: listen requires PUBNUB_SUBSCRIBE_KEY")
	}

	channels := []string{realtime.UserChannel(user.ID)}
	if thread, err := a.help.Thread(ctx, user.ID); err == nil && thread != nil {
		channels = append(channels, realtime.HelpChannel(thread.ID))
	}

	listener := realtime.New(a.cfg.PubNubPublishKey, a.cfg.PubNubSubscribeKey, func(e realtime.Event) {
		fmt.Printf("%s %s %v\n", e.Channel, e.Type, e.Payload)
	})

	fmt.Println("Listening for events, Ctrl-C to stop.")
	listener.Listen(ctx, channels...)
	return nil
}
