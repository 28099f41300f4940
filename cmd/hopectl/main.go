package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/term"

	apiclient "github.com/alvinkenyagah/hope-connect-server/pkg/api/client"
)

type cliConfig struct {
	APIBaseURL string `json:"api_base_url"`
	Token      string `json:"token"`
	UserID     string `json:"user_id"`
}

const requestTimeout = 15 * time.Second

var buildVersion = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "login":
		err = commandLogin(args)
	case "whoami":
		err = commandWhoami(args)
	case "users":
		err = commandUsers(args)
	case "add-counselor":
		err = commandAddCounselor(args)
	case "assign":
		err = commandAssign(args)
	case "set-active":
		err = commandSetActive(args)
	case "history":
		err = commandHistory(args)
	case "version", "--version", "-v":
		printVersion()
		return
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func commandLogin(args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Password (supply to avoid prompt)")
	apiBase := fs.String("api", "", "API base URL (default http://localhost:4000)")
	fs.Parse(args)

	if strings.TrimSpace(*email) == "" {
		return errors.New("--email is required")
	}
	secret, err := readSecret(*password, "Password: ")
	if err != nil {
		return err
	}

	cfg, _ := loadConfig()
	if strings.TrimSpace(*apiBase) != "" {
		cfg.APIBaseURL = *apiBase
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	resp, err := client.Login(ctx, *email, secret)
	if err != nil {
		return err
	}
	cfg.Token = resp.Token
	cfg.UserID = resp.User.ID
	if err := saveConfig(cfg); err != nil {
		return err
	}
	fmt.Printf("logged in as %s (%s)\n", resp.User.Email, resp.User.Role)
	return nil
}

func commandWhoami(args []string) error {
	fs := flag.NewFlagSet("whoami", flag.ExitOnError)
	fs.Parse(args)

	client, cfg, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	user, err := client.Me(ctx, cfg.Token)
	if err != nil {
		return err
	}
	fmt.Printf("%s\t%s\t%s\t%s\n", user.ID, user.Name, user.Email, user.Role)
	return nil
}

func commandUsers(args []string) error {
	fs := flag.NewFlagSet("users", flag.ExitOnError)
	role := fs.String("role", "", "Only show users with this role")
	limit := fs.Int("limit", 0, "Maximum number of users to display")
	fs.Parse(args)

	client, cfg, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	users, err := client.ListUsers(ctx, cfg.Token)
	if err != nil {
		return err
	}
	shown := 0
	for _, u := range users {
		if *role != "" && !strings.EqualFold(u.Role, *role) {
			continue
		}
		if *limit > 0 && shown >= *limit {
			break
		}
		counselor := "-"
		if u.AssignedCounselor != nil {
			counselor = *u.AssignedCounselor
		}
		state := "active"
		if !u.IsActive {
			state = "inactive"
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, u.Role, state, counselor)
		shown++
	}
	return nil
}

func commandAddCounselor(args []string) error {
	fs := flag.NewFlagSet("add-counselor", flag.ExitOnError)
	name := fs.String("name", "", "Full name")
	email := fs.String("email", "", "Email address")
	password := fs.String("password", "", "Initial password (supply to avoid prompt)")
	specialization := fs.String("specialization", "", "Specialization")
	qualifications := fs.String("qualifications", "", "Qualifications")
	location := fs.String("location", "", "Location")
	fs.Parse(args)

	if strings.TrimSpace(*name) == "" || strings.TrimSpace(*email) == "" || strings.TrimSpace(*specialization) == "" {
		return errors.New("--name, --email and --specialization are required")
	}
	secret, err := readSecret(*password, "Initial password: ")
	if err != nil {
		return err
	}
	client, cfg, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	user, err := client.AddCounselor(ctx, cfg.Token, apiclient.CounselorRequest{
		Name:           *name,
		Email:          *email,
		Password:       secret,
		Specialization: *specialization,
		Qualifications: *qualifications,
		Location:       *location,
	})
	if err != nil {
		return err
	}
	fmt.Printf("counselor created: %s\t%s\n", user.ID, user.Email)
	return nil
}

func commandAssign(args []string) error {
	fs := flag.NewFlagSet("assign", flag.ExitOnError)
	victimID := fs.String("victim", "", "Victim identifier")
	counselorID := fs.String("counselor", "", "Counselor identifier")
	expected := fs.String("expect", "", "Only assign if the victim's current counselor matches (use 'none' for unassigned)")
	fs.Parse(args)

	if strings.TrimSpace(*victimID) == "" || strings.TrimSpace(*counselorID) == "" {
		return errors.New("--victim and --counselor are required")
	}
	var want *string
	switch v := strings.TrimSpace(*expected); v {
	case "":
	case "none":
		empty := ""
		want = &empty
	default:
		want = &v
	}
	client, cfg, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	victim, err := client.AssignCounselor(ctx, cfg.Token, *victimID, *counselorID, want)
	if err != nil {
		return err
	}
	fmt.Printf("%s now assigned to %s\n", victim.ID, *counselorID)
	return nil
}

func commandSetActive(args []string) error {
	fs := flag.NewFlagSet("set-active", flag.ExitOnError)
	userID := fs.String("user", "", "User identifier")
	active := fs.Bool("active", true, "Set to false to deactivate the account")
	fs.Parse(args)

	if strings.TrimSpace(*userID) == "" {
		return errors.New("--user is required")
	}
	client, cfg, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	user, err := client.SetActive(ctx, cfg.Token, *userID, *active)
	if err != nil {
		return err
	}
	fmt.Printf("%s active=%t\n", user.ID, user.IsActive)
	return nil
}

func commandHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	with := fs.String("with", "", "Other participant identifier")
	fs.Parse(args)

	if strings.TrimSpace(*with) == "" {
		return errors.New("--with is required")
	}
	client, cfg, err := session()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	messages, err := client.History(ctx, cfg.Token, cfg.UserID, *with)
	if err != nil {
		return err
	}
	for _, m := range messages {
		from := "?"
		if m.From != nil {
			from = m.From.Name
		}
		if m.Anonymous {
			from = "anonymous"
		}
		text := m.Text
		if m.Undecryptable {
			text = "<undecryptable>"
		}
		fmt.Printf("%s\t%s\t%s\n", m.CreatedAt.Local().Format(time.DateTime), from, text)
	}
	return nil
}

func session() (*apiclient.Client, cliConfig, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, cliConfig{}, err
	}
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, cliConfig{}, errors.New("please login first using 'hopectl login'")
	}
	client, err := apiclient.New(cfg.APIBaseURL)
	if err != nil {
		return nil, cliConfig{}, err
	}
	return client, cfg, nil
}

func readSecret(flagValue, prompt string) (string, error) {
	if secret := strings.TrimSpace(flagValue); secret != "" {
		return secret, nil
	}
	fmt.Print(prompt)
	bytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Print("\n")
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(bytes), nil
}

func loadConfig() (cliConfig, error) {
	path, err := configPath()
	if err != nil {
		return cliConfig{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cliConfig{APIBaseURL: "http://localhost:4000"}, nil
		}
		return cliConfig{}, err
	}
	var cfg cliConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cliConfig{}, err
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:4000"
	}
	return cfg, nil
}

func saveConfig(cfg cliConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func configPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "hopectl", "config.json"), nil
}

func printUsage() {
	fmt.Printf("hopectl %s\n\n", buildVersion)
	fmt.Print(`Usage:
	hopectl login --email admin@example.com [--password secret] [--api http://localhost:4000]
	hopectl whoami
	hopectl users [--role victim|counselor|admin] [--limit N]
	hopectl add-counselor --name <name> --email <email> --specialization <text> [--qualifications <text>] [--location <text>]
	hopectl assign --victim <victim-id> --counselor <counselor-id> [--expect <counselor-id>|none]
	hopectl set-active --user <user-id> [--active=false]
	hopectl history --with <user-id>
	hopectl version
`)
}

func printVersion() {
	fmt.Println(strings.TrimSpace(buildVersion))
}
