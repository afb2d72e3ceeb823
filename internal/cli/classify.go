package cli

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/SedlarDavid/localwp-mcp/internal/sqlsafety"
)

var (
	classifyWrite  bool
	classifyParams []string
)

var errRejected = errors.New("statement rejected")

var classifyCmd = &cobra.Command{
	Use:   "classify <sql>",
	Short: "Check whether a statement would be allowed",
	Long: `Run the query safety check on one statement without connecting to a
database. Exits non-zero when the statement would be rejected.`,
	Args: cobra.ExactArgs(1),
	RunE: runClassify,
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyWrite, "write", false, "Evaluate as if write mode were enabled")
	classifyCmd.Flags().StringArrayVar(&classifyParams, "param", nil, "Bound parameter value (repeatable)")
	rootCmd.AddCommand(classifyCmd)
}

type classifyOutput struct {
	sqlsafety.Result
	Reason string `json:"reason,omitempty"`
}

func runClassify(cmd *cobra.Command, args []string) error {
	params := make([]any, len(classifyParams))
	for i, p := range classifyParams {
		params[i] = p
	}
	res := sqlsafety.Classify(args[0], params, classifyWrite)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(classifyOutput{Result: res, Reason: res.Reason()}); err != nil {
		return err
	}
	if !res.Allowed {
		return errRejected
	}
	return nil
}
