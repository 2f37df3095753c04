package ddbschema

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// SampleActions are the permissions needed to derive a schema from a live table.
var SampleActions = []string{"dynamodb:DescribeTable", "dynamodb:Scan"}

// IdentityClient is the subset of *sts.Client used to find the caller.
type IdentityClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// PolicySimulator is the subset of *iam.Client used to check permissions.
type PolicySimulator interface {
	SimulatePrincipalPolicy(ctx context.Context, params *iam.SimulatePrincipalPolicyInput, optFns ...func(*iam.Options)) (*iam.SimulatePrincipalPolicyOutput, error)
}

// AccessReport is the outcome of a permission check.
type AccessReport struct {
	Account   string
	Principal string
	Denied    []string
}

// Allowed reports whether every checked action was allowed.
func (r *AccessReport) Allowed() bool { return len(r.Denied) == 0 }

// CheckAccess simulates the caller's policies for actions on resourceARN.
func CheckAccess(ctx context.Context, ids IdentityClient, sim PolicySimulator, resourceARN string, actions []string) (*AccessReport, error) {
	who, err := ids.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("get caller identity: %w", err)
	}
	report := &AccessReport{
		Account:   aws.ToString(who.Account),
		Principal: PrincipalARN(aws.ToString(who.Arn)),
	}

	out, err := sim.SimulatePrincipalPolicy(ctx, &iam.SimulatePrincipalPolicyInput{
		PolicySourceArn: aws.String(report.Principal),
		ActionNames:     actions,
		ResourceArns:    []string{resourceARN},
	})
	if err != nil {
		return nil, fmt.Errorf("simulate policy for %s: %w", report.Principal, err)
	}
	for _, res := range out.EvaluationResults {
		if res.EvalDecision != iamtypes.PolicyEvaluationDecisionTypeAllowed {
			report.Denied = append(report.Denied, aws.ToString(res.EvalActionName))
		}
	}
	return report, nil
}

// PrincipalARN maps an assumed-role session ARN to the ARN of its role, which
// is what the policy simulator accepts. Other ARNs are returned unchanged.
func PrincipalARN(callerARN string) string {
	// arn:aws:sts::123456789012:assumed-role/RoleName/session
	parts := strings.SplitN(callerARN, ":", 6)
	if len(parts) != 6 || parts[2] != "sts" || !strings.HasPrefix(parts[5], "assumed-role/") {
		return callerARN
	}
	role := strings.Split(strings.TrimPrefix(parts[5], "assumed-role/"), "/")[0]
	return fmt.Sprintf("arn:%s:iam::%s:role/%s", parts[1], parts[4], role)
}
