package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"translatorhub/internal/controller"
	"translatorhub/internal/media"
	"translatorhub/internal/models"
	"translatorhub/internal/observability"
	contextutils "translatorhub/internal/utils"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type requestFlags struct {
	from      string
	to        string
	noAnimate bool
}

func (f *requestFlags) bindLanguages(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "source language code (default from config)")
	cmd.Flags().StringVar(&f.to, "to", "", "target language code (default from config)")
}

func (f *requestFlags) bindOutput(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.noAnimate, "no-animate", false, "print the result at once even on a terminal")
}

// TranslateCommands returns the translate, ocr and transcribe commands
func TranslateCommands(env *Env) []*cobra.Command {
	var textFlags, imageFlags, audioFlags requestFlags

	translateCmd := &cobra.Command{
		Use:   "translate [text...]",
		Short: "Translate text, read from stdin when no arguments are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := inputText(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			return runRequest(cmd, env, "translate", textFlags, func(ctx context.Context, ctrl *controller.Controller) error {
				return ctrl.SubmitText(ctx, text, textFlags.source(env), textFlags.target(env))
			})
		},
	}
	textFlags.bindLanguages(translateCmd)
	textFlags.bindOutput(translateCmd)

	ocrCmd := &cobra.Command{
		Use:   "ocr <image-file>",
		Short: "Extract the text printed in an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := media.EncodeFile(args[0])
			if err != nil {
				return err
			}
			return runRequest(cmd, env, "ocr", imageFlags, func(ctx context.Context, ctrl *controller.Controller) error {
				return ctrl.SubmitImage(ctx, payload)
			})
		},
	}
	imageFlags.bindOutput(ocrCmd)

	transcribeCmd := &cobra.Command{
		Use:   "transcribe <audio-file>",
		Short: "Transcribe recorded speech and translate it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := media.EncodeFile(args[0])
			if err != nil {
				return err
			}
			return runRequest(cmd, env, "transcribe", audioFlags, func(ctx context.Context, ctrl *controller.Controller) error {
				return ctrl.SubmitAudio(ctx, payload, audioFlags.source(env), audioFlags.target(env))
			})
		},
	}
	audioFlags.bindLanguages(transcribeCmd)
	audioFlags.bindOutput(transcribeCmd)

	return []*cobra.Command{translateCmd, ocrCmd, transcribeCmd}
}

func (f *requestFlags) source(env *Env) models.LanguageCode {
	if f.from != "" {
		return models.LanguageCode(f.from)
	}
	return models.LanguageCode(env.Config.Defaults.SourceLanguage)
}

func (f *requestFlags) target(env *Env) models.LanguageCode {
	if f.to != "" {
		return models.LanguageCode(f.to)
	}
	return models.LanguageCode(env.Config.Defaults.TargetLanguage)
}

// inputText joins args, or reads all of in when there are none
func inputText(in io.Reader, args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", contextutils.WrapError(err, "failed to read stdin")
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

// runRequest submits one request through a fresh controller and prints its result
func runRequest(cmd *cobra.Command, env *Env, name string, flags requestFlags, submit func(context.Context, *controller.Controller) error) (err error) {
	ctx, span := observability.TraceCLIFunction(cmd.Context(), name)
	defer observability.FinishSpan(span, &err)

	container, err := env.container(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := container.Shutdown(context.Background()); shutdownErr != nil {
			env.Logger.Warn(ctx, "Failed to shut down services", map[string]interface{}{"error": shutdownErr.Error()})
		}
	}()

	ctrl, err := container.NewController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := submit(ctx, ctrl); err != nil {
		return err
	}

	snap, err := ctrl.Wait(ctx)
	if err != nil {
		ctrl.CancelInFlight()
		return contextutils.WrapError(err, "request interrupted")
	}
	if snap.Status == models.StatusFailed {
		if reqErr := ctrl.Err(); reqErr != nil {
			return reqErr
		}
		return contextutils.ErrInternalError
	}
	if snap.Result == nil {
		return contextutils.WrapError(contextutils.ErrInternalError, "request settled without a result")
	}

	out := cmd.OutOrStdout()
	if flags.noAnimate || !isTerminal(out) {
		_, err := fmt.Fprintln(out, *snap.Result)
		return err
	}
	return typeOut(ctx, out, ctrl)
}

// typeOut writes the result as it is revealed, one frame at a time
func typeOut(ctx context.Context, out io.Writer, ctrl *controller.Controller) error {
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	printed := ""
	for {
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out)
			return ctx.Err()
		case snap, ok := <-updates:
			if !ok {
				_, err := fmt.Fprintln(out)
				return err
			}
			if strings.HasPrefix(snap.RevealedOutput, printed) && len(snap.RevealedOutput) > len(printed) {
				if _, err := fmt.Fprint(out, snap.RevealedOutput[len(printed):]); err != nil {
					return err
				}
				printed = snap.RevealedOutput
			}
			if snap.RevealComplete || snap.Status != models.StatusSucceeded {
				_, err := fmt.Fprintln(out)
				return err
			}
		}
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
