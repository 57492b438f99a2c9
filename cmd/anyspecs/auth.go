package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/anyspecs/anyspecs/internal/api"
	"github.com/anyspecs/anyspecs/internal/notice"
	"github.com/anyspecs/anyspecs/internal/session"
	"github.com/anyspecs/anyspecs/internal/ux"
)

func (a *app) loginCmd() *cobra.Command {
	var username, password, wechat string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd)

			var (
				sess *session.Session
				err  error
			)
			if wechat != "" {
				sess, err = a.client.WeChatLogin(ctx, wechat)
			} else {
				if (username == "" || password == "") && stdinIsTerminal() {
					if err := huh.NewForm(huh.NewGroup(
						huh.NewInput().Title("Username").Value(&username),
						huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&password),
					)).Run(); err != nil {
						return err
					}
				}
				sess, err = a.client.Login(ctx, username, password)
			}
			if err != nil {
				return err
			}
			if err := a.store.Save(sess); err != nil {
				return fmt.Errorf("save session: %w", err)
			}
			notice.Successf(a.printer, "Signed in as %s", sess.User.Name())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	cmd.Flags().StringVar(&wechat, "wechat", "", "sign in with a WeChat verification code instead")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var (
		form      api.RegisterForm
		turnstile string
		sendCode  bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := a.context(cmd)
			status, err := a.client.Status(ctx)
			if err != nil {
				return err
			}

			if sendCode {
				if form.Email == "" {
					return api.ErrEmailRequired
				}
				if err := a.client.SendVerification(ctx, form.Email, turnstile); err != nil {
					return err
				}
				notice.Successf(a.printer, "Verification code sent to %s", form.Email)
				return nil
			}

			if stdinIsTerminal() && (form.Username == "" || form.Password == "") {
				fields := []huh.Field{
					huh.NewInput().Title("Username").CharLimit(12).Value(&form.Username),
					huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&form.Password),
					huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&form.Password2),
				}
				if status.EmailVerification {
					fields = append(fields,
						huh.NewInput().Title("Email").Value(&form.Email),
						huh.NewInput().Title("Verification code").Value(&form.VerificationCode),
					)
				}
				if err := huh.NewForm(huh.NewGroup(fields...)).Run(); err != nil {
					return err
				}
			}
			if form.Password2 == "" {
				form.Password2 = form.Password
			}

			if err := a.client.Register(ctx, status, form, turnstile); err != nil {
				return err
			}
			notice.Successf(a.printer, "Account %s created, run anyspecs login to sign in", form.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&form.Username, "username", "u", "", "account name (at most 12 characters)")
	cmd.Flags().StringVarP(&form.Password, "password", "p", "", "password (8 to 20 characters)")
	cmd.Flags().StringVar(&form.Password2, "confirm", "", "password confirmation (defaults to --password)")
	cmd.Flags().StringVar(&form.Email, "email", "", "email address when the server verifies email")
	cmd.Flags().StringVar(&form.VerificationCode, "code", "", "email verification code")
	cmd.Flags().StringVar(&turnstile, "turnstile", "", "turnstile token when the server requires one")
	cmd.Flags().BoolVar(&sendCode, "send-code", false, "only send a verification code to --email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			err := a.client.Logout(a.context(cmd))
			if cerr := a.store.Clear(); cerr != nil {
				return errors.Join(err, cerr)
			}
			if err != nil {
				return fmt.Errorf("signed out locally: %w", err)
			}
			notice.Successf(a.printer, "Signed out")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := a.requireSession()
			if err != nil {
				return err
			}
			if ok, err := a.encode(sess.User); ok {
				return err
			}
			role := "user"
			if sess.IsAdmin() {
				role = "admin"
			}
			a.println(ux.Header(sess, "", "Home"))
			a.println(fmt.Sprintf("%s (%s, id %d, %s)", sess.User.Name(), sess.User.Username, sess.User.ID, role))
			if !sess.ExpiresAt.IsZero() {
				a.println(ux.Styles.Muted.Render("session expires " + sess.ExpiresAt.Local().Format("2006-01-02 15:04")))
			}
			return nil
		},
	}
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the server's public configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			status, err := a.client.Status(a.context(cmd))
			if err != nil {
				return err
			}
			if ok, err := a.encode(status); ok {
				return err
			}
			a.println(ux.Header(a.client.Session(), status.SystemName, "About"))
			a.println(fmt.Sprintf("server    %s", a.client.BaseURL()))
			a.println(fmt.Sprintf("version   %s", status.Version))
			a.println(fmt.Sprintf("sign-in   %s", strings.Join(signInMethods(status), ", ")))
			a.println(fmt.Sprintf("email verification %t, turnstile %t", status.EmailVerification, status.TurnstileCheck))
			a.println(ux.Footer(status.FooterHTML))
			return nil
		},
	}
}

func signInMethods(s api.SystemStatus) []string {
	methods := []string{"password"}
	if s.GitHubOAuth {
		methods = append(methods, "github")
	}
	if s.WeChatLogin {
		methods = append(methods, "wechat")
	}
	return methods
}

func (a *app) noticeCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "notice",
		Short: "Show the server notice if it is new",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text, err := a.client.Notice(a.context(cmd))
			if err != nil {
				return err
			}
			show, err := a.store.RecordNotice(text)
			if err != nil {
				return err
			}
			if show || (all && strings.TrimSpace(text) != "") {
				a.println(ux.Styles.Card.Render(text))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "show the notice even if it was seen before")
	return cmd
}
