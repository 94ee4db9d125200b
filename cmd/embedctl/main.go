// Package main implements embedctl, a CLI for calling a running embedding backend.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/embedding-backend/internal/backendclient"
	"github.com/MikeSquared-Agency/embedding-backend/internal/embeddings"
	"github.com/MikeSquared-Agency/embedding-backend/internal/models"
	"github.com/MikeSquared-Agency/embedding-backend/internal/service"
)

var (
	// serverURL is the base URL of the embedding backend
	serverURL string
	apiKey    string
	timeout   time.Duration
	version   = "dev"

	probeImage string
	imageTexts []string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "embedctl",
	Short: "CLI for the deterministic embedding backend",
	Long: `embedctl calls a running embedding backend and prints the JSON responses.
Useful for checking which models a backend advertises and for capturing
reference vectors in integration fixtures.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("EMBEDDING_BACKEND_URL", "http://localhost:8501"), "embedding backend URL")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", os.Getenv("EMBEDDING_BACKEND_API_KEY"), "API key sent as X-API-Key")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "overall request timeout")

	probeCmd.Flags().StringVar(&probeImage, "image", "", "image file to include in the probe")
	embedImageCmd.Flags().StringArrayVar(&imageTexts, "text", nil, "caption for the image at the same position (repeatable)")

	rootCmd.AddCommand(capabilitiesCmd, probeCmd, embedTextCmd, embedImageCmd, verifyCmd)
}

var capabilitiesCmd = &cobra.Command{
	Use:   "capabilities",
	Short: "List the models the backend serves",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		caps, err := newClient().Capabilities(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), caps)
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe <model> <text>",
	Short: "Probe a model with a text and optional image",
	Long: `Probe a model with a text and optional image.

Examples:
  # Probe a text model
  embedctl probe sentence-transformers/all-MiniLM-L6-v2 "hello"

  # Probe a joint image_text model with an image
  embedctl probe jinaai/jina-clip-v2 "a cat" --image cat.png`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		req := service.ProbeRequest{Model: args[0], Text: args[1]}
		if probeImage != "" {
			input, err := readImage(probeImage)
			if err != nil {
				return err
			}
			req.ImageBase64 = &input.ImageBase64
			req.ImageMime = input.ImageMime
		}

		resp, err := newClient().Probe(ctx, req)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var embedTextCmd = &cobra.Command{
	Use:   "embed-text <model> [text...]",
	Short: "Embed texts; reads one text from stdin when none are given",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		inputs := args[1:]
		if len(inputs) == 0 {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read from stdin: %w", err)
			}
			inputs = []string{string(data)}
		}

		vecs, err := newClient().EmbedText(ctx, args[0], inputs)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), service.EmbeddingsResponse{Embeddings: vecs})
	},
}

var embedImageCmd = &cobra.Command{
	Use:   "embed-image <model> <image-file>...",
	Short: "Embed image files, optionally with captions",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		files := args[1:]
		if len(imageTexts) > len(files) {
			return fmt.Errorf("got %d --text values for %d images", len(imageTexts), len(files))
		}

		inputs := make([]service.ImageTextInput, len(files))
		for i, path := range files {
			input, err := readImage(path)
			if err != nil {
				return err
			}
			if i < len(imageTexts) {
				input.Text = &imageTexts[i]
			}
			inputs[i] = input
		}

		vecs, err := newClient().EmbedImageText(ctx, args[0], inputs)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), service.EmbeddingsResponse{Embeddings: vecs})
	},
}

// verifyReport is printed by the verify command.
type verifyReport struct {
	Model      string   `json:"model"`
	Dim        int      `json:"embedding_dim"`
	Checked    int      `json:"checked"`
	Mismatches []string `json:"mismatches"`
}

var verifyCmd = &cobra.Command{
	Use:   "verify <model> <text>...",
	Short: "Check that the backend's text vectors match an in-process computation",
	Long: `Embed each text through the backend and locally with the same generator,
and report any text whose vectors differ. Exits non-zero on a mismatch.

Example:
  embedctl verify sentence-transformers/all-MiniLM-L6-v2 "hello" "world"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext(cmd)
		defer cancel()

		client := newClient()
		caps, err := client.Capabilities(ctx)
		if err != nil {
			return err
		}

		var model *models.ModelDescriptor
		for i := range caps.Models {
			if caps.Models[i].ID == args[0] {
				model = &caps.Models[i]
				break
			}
		}
		if model == nil {
			return fmt.Errorf("model %q is not served by %s", args[0], serverURL)
		}
		if !model.SupportsText() {
			return fmt.Errorf("model %q does not accept text inputs", model.ID)
		}

		local, err := embeddings.NewDeterministicProvider(model.EmbeddingDim)
		if err != nil {
			return err
		}
		remote := backendclient.NewProvider(client, model.ID)

		report := verifyReport{Model: model.ID, Dim: model.EmbeddingDim, Mismatches: []string{}}
		for _, text := range args[1:] {
			mismatch, err := compareProviders(ctx, text, local, remote)
			if err != nil {
				return err
			}
			report.Checked++
			if mismatch {
				report.Mismatches = append(report.Mismatches, text)
			}
		}

		if err := printJSON(cmd.OutOrStdout(), report); err != nil {
			return err
		}
		if len(report.Mismatches) > 0 {
			return fmt.Errorf("%d of %d texts differ", len(report.Mismatches), report.Checked)
		}
		return nil
	},
}

// compareProviders reports whether want and got embed text differently.
func compareProviders(ctx context.Context, text string, want, got embeddings.Provider) (bool, error) {
	a, err := want.Embed(ctx, text)
	if err != nil {
		return false, fmt.Errorf("%s provider: %w", want.Name(), err)
	}
	b, err := got.Embed(ctx, text)
	if err != nil {
		return false, fmt.Errorf("%s provider: %w", got.Name(), err)
	}
	return !slices.Equal(a.Slice(), b.Slice()), nil
}

func newClient() *backendclient.Client {
	return backendclient.New(serverURL,
		backendclient.WithAPIKey(apiKey),
		backendclient.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, timeout)
}

// readImage base64-encodes a file and guesses its MIME type from the extension.
func readImage(path string) (service.ImageTextInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.ImageTextInput{}, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	input := service.ImageTextInput{ImageBase64: base64.StdEncoding.EncodeToString(data)}
	if m := mime.TypeByExtension(filepath.Ext(path)); m != "" {
		input.ImageMime = &m
	}
	return input, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
