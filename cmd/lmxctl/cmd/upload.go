package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ymghtzz/LMeterX-sub000/internal/api"
	"github.com/ymghtzz/LMeterX-sub000/internal/dataset"
	"github.com/ymghtzz/LMeterX-sub000/internal/render"
)

var (
	uploadType     string
	uploadTaskID   string
	uploadCertType string
)

var uploadCmd = &cobra.Command{
	Use:   "upload [source]",
	Short: "Upload a dataset or certificate for a job",
	Long: `Upload a dataset or client certificate to the backend.

The source may be a local path, an http(s) URL, or an sftp URL on a
load-generator host (sftp needs ssh.user and ssh.private_key_file in the
config). Files over the per-type size limit are rejected before any bytes
are sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadType, "type", api.FileTypeDataset, "File type (dataset, cert)")
	uploadCmd.Flags().StringVar(&uploadTaskID, "task", "", "Task the file belongs to")
	uploadCmd.Flags().StringVar(&uploadCertType, "cert-type", "", "Certificate slot (cert_file, key_file)")

	_ = uploadCmd.MarkFlagRequired("task")
}

func runUpload(cmd *cobra.Command, args []string) error {
	var maxSize int64
	switch uploadType {
	case api.FileTypeDataset:
		maxSize = api.MaxDatasetSize
	case api.FileTypeCert:
		maxSize = api.MaxCertSize
		if uploadCertType == "" {
			return fmt.Errorf("--cert-type is required for cert uploads")
		}
	default:
		return fmt.Errorf("unknown file type %q", uploadType)
	}

	resolver, err := newResolver()
	if err != nil {
		return err
	}

	file, err := resolver.Resolve(cmd.Context(), args[0], maxSize)
	if err != nil {
		return fmt.Errorf("failed to resolve source: %w", err)
	}

	client := newClient()
	result, err := client.Upload(cmd.Context(), &api.UploadRequest{
		FileType: uploadType,
		TaskID:   uploadTaskID,
		CertType: uploadCertType,
		Filename: file.Name,
		Content:  file.Content,
	})
	if err != nil {
		return err
	}

	if outputFormat == "json" {
		return render.JSON(os.Stdout, result)
	}
	fmt.Printf("Uploaded %s (%d bytes) as %s.\n", file.Name, len(file.Content), result.FileID)
	return nil
}

// newResolver builds a source resolver, loading SSH credentials from the
// config when present.
func newResolver() (*dataset.Resolver, error) {
	var opts []dataset.Option
	if cfg.SSH.PrivateKeyFile != "" {
		key, err := os.ReadFile(cfg.SSH.PrivateKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read ssh private key: %w", err)
		}
		opts = append(opts, dataset.WithSSHCredentials(cfg.SSH.User, key))
	}
	return dataset.NewResolver(opts...), nil
}
